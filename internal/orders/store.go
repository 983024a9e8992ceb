package orders

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

const userIndex = "user_id-index"

// ErrDuplicateNumber indicates an order number collision on create.
var ErrDuplicateNumber = errors.New("order number already exists")

// ErrStatusMismatch indicates a conditional status transition lost a race.
var ErrStatusMismatch = errors.New("order status mismatch")

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists the order with its embedded item snapshots as one durable
// unit, guarded against order-number collisions. The caller regenerates the
// number and retries on ErrDuplicateNumber. Timestamps are stamped on the
// passed order.
func (s *Store) Create(ctx context.Context, order *Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_number)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// Get fetches an order by number. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderNumber string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(orderNumber),
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	idx := userIndex
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &idx,
		KeyConditionExpression: awsString("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	result := make([]Order, 0, len(out.Items))
	for _, raw := range out.Items {
		var o Order
		if err := attributevalue.UnmarshalMap(raw, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateStatus conditionally transitions expected -> newStatus.
// ErrStatusMismatch if the order is no longer in the expected status.
func (s *Store) UpdateStatus(ctx context.Context, orderNumber, expectedStatus, newStatus string) error {
	input := &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      s.key(orderNumber),
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
			":ua":       &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339)},
		},
	}
	return s.conditionalUpdate(ctx, input)
}

// MarkPaid transitions pending -> paid and stamps the payment fields.
// Payment is modeled as a status change only; there is no gateway protocol.
func (s *Store) MarkPaid(ctx context.Context, orderNumber string) error {
	now := s.nowFunc().Format(time.RFC3339)
	input := &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      s.key(orderNumber),
		UpdateExpression:         awsString("SET #s = :new, payment_status = :ps, payment_confirmed_at = :ts, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: StatusPaid},
			":expected": &types.AttributeValueMemberS{Value: StatusPending},
			":ps":       &types.AttributeValueMemberS{Value: PaymentPaid},
			":ts":       &types.AttributeValueMemberS{Value: now},
			":ua":       &types.AttributeValueMemberS{Value: now},
		},
	}
	return s.conditionalUpdate(ctx, input)
}

// MarkShipped transitions paid -> shipped and records the tracking number.
func (s *Store) MarkShipped(ctx context.Context, orderNumber, trackingNumber string) error {
	now := s.nowFunc().Format(time.RFC3339)
	input := &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      s.key(orderNumber),
		UpdateExpression:         awsString("SET #s = :new, tracking_number = :tn, shipped_at = :ts, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: StatusShipped},
			":expected": &types.AttributeValueMemberS{Value: StatusPaid},
			":tn":       &types.AttributeValueMemberS{Value: trackingNumber},
			":ts":       &types.AttributeValueMemberS{Value: now},
			":ua":       &types.AttributeValueMemberS{Value: now},
		},
	}
	return s.conditionalUpdate(ctx, input)
}

func (s *Store) conditionalUpdate(ctx context.Context, input *dyn.UpdateItemInput) error {
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (s *Store) key(orderNumber string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_number": &types.AttributeValueMemberS{Value: orderNumber},
	}
}

func awsString(s string) *string { return &s }
