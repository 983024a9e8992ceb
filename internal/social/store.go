// Package social records product share events for engagement tracking.
package social

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
)

// Store encapsulates operations on the social shares table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a shares Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// RecordShare persists a share event. userID is empty for anonymous visitors.
func (s *Store) RecordShare(ctx context.Context, productID, platform, userID string) (*Share, error) {
	share := Share{
		ShareID:   uuid.NewString(),
		ProductID: productID,
		Platform:  platform,
		UserID:    userID,
		CreatedAt: s.nowFunc(),
	}

	item, err := attributevalue.MarshalMap(share)
	if err != nil {
		return nil, fmt.Errorf("marshal share: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return nil, fmt.Errorf("put share: %w", err)
	}
	return &share, nil
}

// StatsByProduct counts the product's recorded shares per platform.
func (s *Store) StatsByProduct(ctx context.Context, productID string) (map[string]int, error) {
	out, err := s.client.Scan(ctx, &dyn.ScanInput{
		TableName:        &s.tableName,
		FilterExpression: awsString("product_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan shares: %w", err)
	}

	counts := map[string]int{}
	for _, item := range out.Items {
		var sh Share
		if err := attributevalue.UnmarshalMap(item, &sh); err != nil {
			return nil, fmt.Errorf("unmarshal share: %w", err)
		}
		counts[sh.Platform]++
	}
	return counts, nil
}

func awsString(s string) *string { return &s }
