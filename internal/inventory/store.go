package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
)

const (
	maxReserveAttempts = 5
	backoffBase        = 20 * time.Millisecond
)

// Store is the reservation engine over the inventory table. All serialization
// happens inside Reserve's conditional transaction; callers never see locks.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	sleepFunc func(context.Context, time.Duration) error
}

// NewStore creates a Store bound to the inventory table.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		sleepFunc: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Get fetches the ledger record for a product. Returns (nil, nil) if the
// product has no inventory row.
func (s *Store) Get(ctx context.Context, productID string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(productID),
	})
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal inventory: %w", err)
	}
	return &rec, nil
}

// Reserve earmarks quantity for every line or for none of them.
//
// DynamoDB conditions cannot subtract one attribute from another, so the
// availability check runs on a read snapshot and each transactional update
// carries a condition that the snapshot counters still hold. A concurrent
// writer cancels the transaction, which re-reads and re-checks; of two
// reserves racing for the last unit exactly one commits and the other
// observes insufficient stock on its next pass.
func (s *Store) Reserve(ctx context.Context, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleepFunc(ctx, backoffBase<<(attempt-1)); err != nil {
				return err
			}
		}

		snapshots := make([]Record, len(lines))
		for i, line := range lines {
			rec, err := s.Get(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if rec == nil {
				return &InsufficientStockError{ProductID: line.ProductID, Available: 0}
			}
			if rec.Available() < line.Quantity {
				return &InsufficientStockError{ProductID: line.ProductID, Available: rec.Available()}
			}
			snapshots[i] = *rec
		}

		now := s.nowFunc().Format(time.RFC3339)
		items := make([]types.TransactWriteItem, len(lines))
		for i, line := range lines {
			items[i] = types.TransactWriteItem{
				Update: &types.Update{
					TableName:           &s.tableName,
					Key:                 s.key(line.ProductID),
					UpdateExpression:    awsString("SET reserved_quantity = reserved_quantity + :q, updated_at = :ua"),
					ConditionExpression: awsString("stock_quantity = :s AND reserved_quantity = :r"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":q":  numAttr(line.Quantity),
						":s":  numAttr(snapshots[i].StockQuantity),
						":r":  numAttr(snapshots[i].ReservedQuantity),
						":ua": &types.AttributeValueMemberS{Value: now},
					},
				},
			}
		}

		_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
		if err == nil {
			return nil
		}
		if isConditionalCancellation(err) {
			continue
		}
		return fmt.Errorf("reserve transact: %w", err)
	}
	return fmt.Errorf("reserve: gave up after %d contended attempts", maxReserveAttempts)
}

// Release hands back reserved quantity. The decrement is clamped at what is
// currently reserved, so releasing the same lines twice is harmless and the
// counter never goes negative. Errors are infrastructure failures only; a
// release can never be rejected for business reasons.
func (s *Store) Release(ctx context.Context, lines []Line) error {
	var firstErr error
	for _, line := range lines {
		if err := s.releaseOne(ctx, line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) releaseOne(ctx context.Context, line Line) error {
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleepFunc(ctx, backoffBase<<(attempt-1)); err != nil {
				return err
			}
		}

		rec, err := s.Get(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if rec == nil || rec.ReservedQuantity == 0 {
			return nil
		}
		dec := line.Quantity
		if dec > rec.ReservedQuantity {
			dec = rec.ReservedQuantity
		}

		_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:           &s.tableName,
			Key:                 s.key(line.ProductID),
			UpdateExpression:    awsString("SET reserved_quantity = reserved_quantity - :d, updated_at = :ua"),
			ConditionExpression: awsString("reserved_quantity = :r"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":d":  numAttr(dec),
				":r":  numAttr(rec.ReservedQuantity),
				":ua": &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339)},
			},
		})
		if err == nil {
			return nil
		}
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			continue
		}
		return fmt.Errorf("release %s: %w", line.ProductID, err)
	}
	return fmt.Errorf("release %s: gave up after %d contended attempts", line.ProductID, maxReserveAttempts)
}

// Confirm converts reservations into permanent deductions at fulfillment:
// both counters drop by the shipped quantity. A line whose counters can no
// longer cover the quantity is skipped; confirm is a best-effort correction
// and must not fail the caller's workflow.
func (s *Store) Confirm(ctx context.Context, lines []Line) error {
	var firstErr error
	for _, line := range lines {
		_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:           &s.tableName,
			Key:                 s.key(line.ProductID),
			UpdateExpression:    awsString("SET stock_quantity = stock_quantity - :q, reserved_quantity = reserved_quantity - :q, updated_at = :ua"),
			ConditionExpression: awsString("stock_quantity >= :q AND reserved_quantity >= :q"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":q":  numAttr(line.Quantity),
				":ua": &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339)},
			},
		})
		if err == nil {
			continue
		}
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("confirm %s: %w", line.ProductID, err)
		}
	}
	return firstErr
}

func (s *Store) key(productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: productID},
	}
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return errors.New("inventory: empty line set")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("inventory: non-positive quantity for product %s", l.ProductID)
		}
	}
	return nil
}

func isConditionalCancellation(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func numAttr(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func awsString(s string) *string { return &s }
