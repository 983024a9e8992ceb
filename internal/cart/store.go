package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
)

// ErrItemNotFound is returned when a cart row does not exist for the user.
var ErrItemNotFound = errors.New("cart item not found")

// Store holds pending line items per user. Plain CRUD; the checkout
// orchestrator consumes it wholesale and clears it after a committed order.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a cart Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Items returns the user's cart rows, newest first.
func (s *Store) Items(ctx context.Context, userID string) ([]Item, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	items := make([]Item, 0, len(out.Items))
	for _, raw := range out.Items {
		var it Item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal cart item: %w", err)
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Get fetches one cart row. Returns (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, userID, productID string) (*Item, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(userID, productID),
	})
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal cart item: %w", err)
	}
	return &it, nil
}

// Put writes a cart row with the given quantity, creating or replacing it.
// The caller decides the merged quantity; availability guards live above the
// store.
func (s *Store) Put(ctx context.Context, userID, productID string, quantity int) error {
	now := s.nowFunc()
	existing, err := s.Get(ctx, userID, productID)
	if err != nil {
		return err
	}
	createdAt := now
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	item, err := attributevalue.MarshalMap(Item{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: createdAt,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("marshal cart item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put cart item: %w", err)
	}
	return nil
}

// Remove deletes a cart row. ErrItemNotFound if the row does not exist.
func (s *Store) Remove(ctx context.Context, userID, productID string) error {
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          s.key(userID, productID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if len(out.Attributes) == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear deletes every row of the user's cart.
func (s *Store) Clear(ctx context.Context, userID string) error {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	reqs := make([]types.WriteRequest, 0, len(items))
	for _, it := range items {
		reqs = append(reqs, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: s.key(it.UserID, it.ProductID)},
		})
	}
	// BatchWriteItem caps out at 25 requests per call.
	for len(reqs) > 0 {
		batch := reqs
		if len(batch) > 25 {
			batch = batch[:25]
		}
		reqs = reqs[len(batch):]
		if _, err := s.client.BatchWriteItem(ctx, &dyn.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: batch},
		}); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
	}
	return nil
}

func (s *Store) key(userID, productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":    &types.AttributeValueMemberS{Value: userID},
		"product_id": &types.AttributeValueMemberS{Value: productID},
	}
}

func awsString(s string) *string { return &s }
