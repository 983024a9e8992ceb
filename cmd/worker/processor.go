package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
	"github.com/hikarium/go-shop-fulfillment/internal/orders"
)

// Processor consumes order events from the fulfillment queue. ship_order is
// the one event with side effects; the rest are acknowledgements.
type Processor struct {
	orderStore     *orders.Store
	inventoryStore *inventory.Store

	trackingFunc func() string
}

// NewProcessor wires a Processor against the given tables.
func NewProcessor(client aws.DynamoDBAPI, ordersTable, inventoryTable string) *Processor {
	return &Processor{
		orderStore:     orders.NewStore(client, ordersTable),
		inventoryStore: inventory.NewStore(client, inventoryTable),
		trackingFunc:   newTrackingNumber,
	}
}

func newTrackingNumber() string {
	return "TRK-" + uuid.NewString()[:8]
}

// Handle processes an SQS batch. A returned error makes Lambda retry the
// batch; repeated failures land in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev aws.OrderEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	switch ev.Type {
	case aws.EventShipOrder:
		return p.shipOrder(ctx, ev)
	case aws.EventOrderCreated, aws.EventOrderPaid:
		log.Printf("[worker] ack %s for order=%s", ev.Type, ev.OrderNumber)
		return nil
	default:
		// Unknown types are dropped, not retried; redelivery cannot fix them.
		log.Printf("[worker] unknown event type %q for order=%s", ev.Type, ev.OrderNumber)
		return nil
	}
}

// shipOrder moves paid -> shipped, stamps a tracking number and converts the
// order's reservations into permanent stock deductions.
func (p *Processor) shipOrder(ctx context.Context, ev aws.OrderEvent) error {
	order, err := p.orderStore.Get(ctx, ev.OrderNumber)
	if err != nil {
		return fmt.Errorf("fetch order %s: %w", ev.OrderNumber, err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", ev.OrderNumber)
	}

	tracking := ev.TrackingNumber
	if tracking == "" {
		tracking = p.trackingFunc()
	}

	err = p.orderStore.MarkShipped(ctx, ev.OrderNumber, tracking)
	if errors.Is(err, orders.ErrStatusMismatch) {
		o2, gerr := p.orderStore.Get(ctx, ev.OrderNumber)
		if gerr != nil {
			return fmt.Errorf("re-fetch order %s: %w", ev.OrderNumber, gerr)
		}
		switch o2.Status {
		case orders.StatusShipped, orders.StatusDelivered:
			// Duplicate delivery of the same event.
			log.Printf("[worker] order=%s already shipped", ev.OrderNumber)
			return nil
		case orders.StatusCancelled, orders.StatusRefunded:
			log.Printf("[worker] order=%s was %s, skipping shipment", ev.OrderNumber, o2.Status)
			return nil
		default:
			return fmt.Errorf("order=%s not payable for shipment, status=%s", ev.OrderNumber, o2.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("mark shipped %s: %w", ev.OrderNumber, err)
	}

	lines := make([]inventory.Line, len(order.Items))
	for i, it := range order.Items {
		lines[i] = inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if err := p.inventoryStore.Confirm(ctx, lines); err != nil {
		// The order is shipped either way; the ledger catches up on the next
		// reconciliation.
		log.Printf("[worker] confirm stock for order=%s failed: %v", ev.OrderNumber, err)
	}

	log.Printf("[worker] shipped order=%s tracking=%s", ev.OrderNumber, tracking)
	return nil
}
