// Package checkout orchestrates order placement: cart consumption, stock
// reservation, price calculation, durable order creation with compensation,
// and the downstream event fan-out.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/hikarium/go-shop-fulfillment/internal/aws"
	"github.com/hikarium/go-shop-fulfillment/internal/cart"
	"github.com/hikarium/go-shop-fulfillment/internal/catalog"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
	"github.com/hikarium/go-shop-fulfillment/internal/orders"
	"github.com/hikarium/go-shop-fulfillment/internal/pricing"
)

const maxNumberAttempts = 3

// Deps wires the service to its collaborators. Publisher and Metrics may be
// nil; events and counters are best-effort and never fail a workflow.
type Deps struct {
	Inventory *inventory.Store
	Catalog   *catalog.Store
	Carts     *cart.Store
	Orders    *orders.Store
	Publisher *aws.Publisher
	Metrics   *aws.Metrics
}

// Service is the checkout orchestrator.
type Service struct {
	inventory *inventory.Store
	catalog   *catalog.Store
	carts     *cart.Store
	orders    *orders.Store
	publisher *aws.Publisher
	metrics   *aws.Metrics

	nowFunc  func() time.Time
	randFunc func(n int) int
}

// NewService creates a Service from its dependencies.
func NewService(d Deps) *Service {
	return &Service{
		inventory: d.Inventory,
		catalog:   d.Catalog,
		carts:     d.Carts,
		orders:    d.Orders,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		nowFunc:   time.Now,
		randFunc:  rand.Intn,
	}
}

// PlaceOrderInput is the validated request payload for checkout.
type PlaceOrderInput struct {
	ShippingAddress orders.ShippingAddress
	PaymentMethod   string
	Notes           string
}

// PlaceOrder turns the user's cart into a pending order.
//
// Stock is reserved before anything is written; if the order record cannot be
// persisted afterwards, the reservation is handed back so a failed checkout
// leaves the ledger exactly as it found it. Cart clearing, queue events and
// metrics run after the order is durable and are allowed to fail.
func (s *Service) PlaceOrder(ctx context.Context, userID string, input PlaceOrderInput) (*orders.Order, error) {
	if input.PaymentMethod == "" {
		return nil, &ValidationError{Field: "payment_method", Message: "payment method is required"}
	}

	cartItems, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load cart", Err: err}
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(cartItems))
	for i, ci := range cartItems {
		ids[i] = ci.ProductID
	}
	products, err := s.catalog.BatchGet(ctx, ids)
	if err != nil {
		return nil, &PersistenceError{Op: "load products", Err: err}
	}

	lines := make([]inventory.Line, len(cartItems))
	weighted := make([]pricing.Weighted, len(cartItems))
	snapshots := make([]orders.Item, len(cartItems))
	prices := make([]int, len(cartItems))
	quantities := make([]int, len(cartItems))
	for i, ci := range cartItems {
		p, ok := products[ci.ProductID]
		if !ok || p.Status != catalog.StatusActive {
			return nil, &ValidationError{
				Field:   "product_id",
				Message: fmt.Sprintf("product %s is not available", ci.ProductID),
			}
		}
		lines[i] = inventory.Line{ProductID: ci.ProductID, Quantity: ci.Quantity}
		weighted[i] = pricing.Weighted{Weight: p.Weight, Quantity: ci.Quantity}
		snapshots[i] = orders.Item{
			ProductID:    p.ProductID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     ci.Quantity,
			TotalPrice:   p.Price * ci.Quantity,
		}
		prices[i] = p.Price
		quantities[i] = ci.Quantity
	}

	if err := s.inventory.Reserve(ctx, lines); err != nil {
		var ise *inventory.InsufficientStockError
		if errors.As(err, &ise) {
			s.count(ctx, "OrderPlaced", "insufficient_stock")
			return nil, err
		}
		return nil, &PersistenceError{Op: "reserve stock", Err: err}
	}

	subtotal := pricing.Subtotal(prices, quantities)
	shippingFee := pricing.ShippingFee(subtotal, weighted)
	tax := pricing.Tax(subtotal)

	order := orders.Order{
		UserID:          userID,
		Status:          orders.StatusPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   orders.PaymentPending,
		Subtotal:        subtotal,
		ShippingFee:     shippingFee,
		TaxAmount:       tax,
		TotalAmount:     pricing.OrderTotal(subtotal, shippingFee, tax),
		ShippingAddress: input.ShippingAddress,
		Items:           snapshots,
		Notes:           input.Notes,
		CreatedAt:       s.nowFunc(),
	}

	var createErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order.OrderNumber = s.newOrderNumber()
		createErr = s.orders.Create(ctx, &order)
		if createErr == nil || !errors.Is(createErr, orders.ErrDuplicateNumber) {
			break
		}
	}
	if createErr != nil {
		if rerr := s.inventory.Release(ctx, lines); rerr != nil {
			log.Printf("compensating release failed after create of %s: %v", order.OrderNumber, rerr)
		}
		s.count(ctx, "OrderPlaced", "persistence_failure")
		return nil, &PersistenceError{Op: "create order", Err: createErr}
	}

	// The order is durable from here on; nothing below may undo it.
	if err := s.carts.Clear(ctx, userID); err != nil {
		log.Printf("cart clear failed for user %s after order %s: %v", userID, order.OrderNumber, err)
	}
	s.publish(ctx, aws.OrderEvent{
		Type:        aws.EventOrderCreated,
		OrderNumber: order.OrderNumber,
		UserID:      userID,
	})
	s.count(ctx, "OrderPlaced", "success")

	return &order, nil
}

// CancelOrder cancels the user's order and hands its reservation back.
// Allowed only while the order is pending or paid.
func (s *Service) CancelOrder(ctx context.Context, userID, orderNumber string) (*orders.Order, error) {
	o, err := s.ownedOrder(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}
	if !orders.Cancellable(o.Status) {
		return nil, ErrNotCancellable
	}

	if err := s.orders.UpdateStatus(ctx, orderNumber, o.Status, orders.StatusCancelled); err != nil {
		if errors.Is(err, orders.ErrStatusMismatch) {
			// Lost a race against shipping or another cancel.
			return nil, ErrNotCancellable
		}
		return nil, &PersistenceError{Op: "cancel order", Err: err}
	}

	if err := s.inventory.Release(ctx, linesOf(o.Items)); err != nil {
		log.Printf("release after cancel of %s failed: %v", orderNumber, err)
	}

	o.Status = orders.StatusCancelled
	s.count(ctx, "OrderCancelled", "")
	return o, nil
}

// ConfirmPayment marks a pending order paid and queues it for shipment.
func (s *Service) ConfirmPayment(ctx context.Context, userID, orderNumber string) (*orders.Order, error) {
	o, err := s.ownedOrder(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := s.orders.MarkPaid(ctx, orderNumber); err != nil {
		if errors.Is(err, orders.ErrStatusMismatch) {
			return nil, ErrNotPayable
		}
		return nil, &PersistenceError{Op: "confirm payment", Err: err}
	}

	o.Status = orders.StatusPaid
	o.PaymentStatus = orders.PaymentPaid
	s.publish(ctx, aws.OrderEvent{
		Type:        aws.EventShipOrder,
		OrderNumber: orderNumber,
		UserID:      userID,
	})
	s.count(ctx, "OrderPaid", "")
	return o, nil
}

// Order fetches one of the user's orders. ErrNotFound for missing orders and
// for orders belonging to someone else.
func (s *Service) Order(ctx context.Context, userID, orderNumber string) (*orders.Order, error) {
	return s.ownedOrder(ctx, userID, orderNumber)
}

// Orders lists the user's orders, newest first.
func (s *Service) Orders(ctx context.Context, userID string) ([]orders.Order, error) {
	list, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list orders", Err: err}
	}
	return list, nil
}

func (s *Service) ownedOrder(ctx context.Context, userID, orderNumber string) (*orders.Order, error) {
	o, err := s.orders.Get(ctx, orderNumber)
	if err != nil {
		return nil, &PersistenceError{Op: "load order", Err: err}
	}
	if o == nil || o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// newOrderNumber builds "EC" + unix millis + a 4-digit suffix. Collisions are
// possible within a millisecond and handled by the conditional create.
func (s *Service) newOrderNumber() string {
	return fmt.Sprintf("EC%d%04d", s.nowFunc().UnixMilli(), s.randFunc(10000))
}

func linesOf(items []orders.Item) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, it := range items {
		lines[i] = inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

func (s *Service) publish(ctx context.Context, ev aws.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, ev, map[string]string{"event_type": ev.Type}); err != nil {
		log.Printf("publish %s for %s failed: %v", ev.Type, ev.OrderNumber, err)
	}
}

func (s *Service) count(ctx context.Context, name, outcome string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Count(ctx, name, outcome); err != nil {
		log.Printf("metric %s failed: %v", name, err)
	}
}
