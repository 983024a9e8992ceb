package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
	"github.com/hikarium/go-shop-fulfillment/internal/dynamotest"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
	"github.com/hikarium/go-shop-fulfillment/internal/orders"
)

const (
	ordersTable    = "orders-test"
	inventoryTable = "inventory-test"
)

func newProcessor(t *testing.T) (*Processor, *dynamotest.Fake) {
	t.Helper()
	fake := dynamotest.New()
	fake.CreateTable(ordersTable, "order_number", "")
	fake.CreateTable(inventoryTable, "product_id", "")
	p := NewProcessor(fake, ordersTable, inventoryTable)
	p.trackingFunc = func() string { return "TRK-test" }
	return p, fake
}

func seedPaidOrder(t *testing.T, fake *dynamotest.Fake, orderNumber string) {
	t.Helper()
	item, err := attributevalue.MarshalMap(orders.Order{
		OrderNumber: orderNumber,
		UserID:      "u-1",
		Status:      orders.StatusPaid,
		Items: []orders.Item{
			{ProductID: "p-1", ProductName: "Mug", ProductPrice: 3000, Quantity: 2, TotalPrice: 6000},
		},
	})
	if err != nil {
		t.Fatalf("marshal order: %v", err)
	}
	fake.Seed(ordersTable, item)

	rec, err := attributevalue.MarshalMap(inventory.Record{
		ProductID:        "p-1",
		StockQuantity:    10,
		ReservedQuantity: 2,
	})
	if err != nil {
		t.Fatalf("marshal inventory: %v", err)
	}
	fake.Seed(inventoryTable, rec)
}

func shipEvent(t *testing.T, orderNumber string) events.SQSEvent {
	t.Helper()
	body, err := json.Marshal(aws.OrderEvent{Type: aws.EventShipOrder, OrderNumber: orderNumber})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return events.SQSEvent{Records: []events.SQSMessage{{Body: string(body)}}}
}

func TestShipOrder_MarksShippedAndDeductsStock(t *testing.T) {
	p, fake := newProcessor(t)
	ctx := context.Background()
	seedPaidOrder(t, fake, "EC1")

	if err := p.Handle(ctx, shipEvent(t, "EC1")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	order, err := orders.NewStore(fake, ordersTable).Get(ctx, "EC1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != orders.StatusShipped {
		t.Errorf("status = %s, want shipped", order.Status)
	}
	if order.TrackingNumber != "TRK-test" {
		t.Errorf("tracking = %q, want TRK-test", order.TrackingNumber)
	}

	rec, err := inventory.NewStore(fake, inventoryTable).Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if rec.StockQuantity != 8 || rec.ReservedQuantity != 0 {
		t.Errorf("inventory = %d/%d, want stock 8 reserved 0", rec.StockQuantity, rec.ReservedQuantity)
	}
}

func TestShipOrder_DuplicateEventIsAck(t *testing.T) {
	p, fake := newProcessor(t)
	ctx := context.Background()
	seedPaidOrder(t, fake, "EC1")

	if err := p.Handle(ctx, shipEvent(t, "EC1")); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := p.Handle(ctx, shipEvent(t, "EC1")); err != nil {
		t.Fatalf("duplicate ship_order should ack, got %v", err)
	}

	// The second pass must not deduct stock again.
	rec, _ := inventory.NewStore(fake, inventoryTable).Get(ctx, "p-1")
	if rec.StockQuantity != 8 {
		t.Errorf("stock = %d, want 8 after duplicate event", rec.StockQuantity)
	}
}

func TestShipOrder_MissingOrderFailsForRetry(t *testing.T) {
	p, _ := newProcessor(t)
	if err := p.Handle(context.Background(), shipEvent(t, "EC-missing")); err == nil {
		t.Fatal("expected error for missing order")
	}
}

func TestShipOrder_CancelledOrderIsSkipped(t *testing.T) {
	p, fake := newProcessor(t)
	ctx := context.Background()
	seedPaidOrder(t, fake, "EC1")

	if err := orders.NewStore(fake, ordersTable).UpdateStatus(ctx, "EC1", orders.StatusPaid, orders.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := p.Handle(ctx, shipEvent(t, "EC1")); err != nil {
		t.Fatalf("cancelled order should be skipped, got %v", err)
	}

	rec, _ := inventory.NewStore(fake, inventoryTable).Get(ctx, "p-1")
	if rec.StockQuantity != 10 {
		t.Errorf("stock = %d, want 10 untouched", rec.StockQuantity)
	}
}

func TestAckEvents(t *testing.T) {
	p, _ := newProcessor(t)
	for _, typ := range []string{aws.EventOrderCreated, aws.EventOrderPaid, "mystery"} {
		body, _ := json.Marshal(aws.OrderEvent{Type: typ, OrderNumber: "EC1"})
		ev := events.SQSEvent{Records: []events.SQSMessage{{Body: string(body)}}}
		if err := p.Handle(context.Background(), ev); err != nil {
			t.Errorf("event %q should ack, got %v", typ, err)
		}
	}
}

func TestGarbageBodyFails(t *testing.T) {
	p, _ := newProcessor(t)
	ev := events.SQSEvent{Records: []events.SQSMessage{{Body: "{not json"}}}
	if err := p.Handle(context.Background(), ev); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
