package checkout

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/hikarium/go-shop-fulfillment/internal/cart"
	"github.com/hikarium/go-shop-fulfillment/internal/catalog"
	"github.com/hikarium/go-shop-fulfillment/internal/dynamotest"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
	"github.com/hikarium/go-shop-fulfillment/internal/orders"
)

const (
	productsTable  = "products-test"
	inventoryTable = "inventory-test"
	cartsTable     = "carts-test"
	ordersTable    = "orders-test"
)

type env struct {
	fake    *dynamotest.Fake
	svc     *Service
	carts   *cart.Store
	invStor *inventory.Store
	orders  *orders.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := dynamotest.New()
	fake.CreateTable(productsTable, "product_id", "")
	fake.CreateTable(inventoryTable, "product_id", "")
	fake.CreateTable(cartsTable, "user_id", "product_id")
	fake.CreateTable(ordersTable, "order_number", "")

	carts := cart.NewStore(fake, cartsTable)
	inv := inventory.NewStore(fake, inventoryTable)
	ord := orders.NewStore(fake, ordersTable)
	svc := NewService(Deps{
		Inventory: inv,
		Catalog:   catalog.NewStore(fake, productsTable),
		Carts:     carts,
		Orders:    ord,
	})
	return &env{fake: fake, svc: svc, carts: carts, invStor: inv, orders: ord}
}

func (e *env) seedProduct(t *testing.T, p catalog.Product, stock int) {
	t.Helper()
	if p.Status == "" {
		p.Status = catalog.StatusActive
	}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		t.Fatalf("marshal product: %v", err)
	}
	e.fake.Seed(productsTable, item)

	rec, err := attributevalue.MarshalMap(inventory.Record{ProductID: p.ProductID, StockQuantity: stock})
	if err != nil {
		t.Fatalf("marshal inventory: %v", err)
	}
	e.fake.Seed(inventoryTable, rec)
}

func (e *env) reserved(t *testing.T, productID string) int {
	t.Helper()
	rec, err := e.invStor.Get(context.Background(), productID)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if rec == nil {
		t.Fatalf("no inventory record for %s", productID)
	}
	return rec.ReservedQuantity
}

func defaultInput() PlaceOrderInput {
	return PlaceOrderInput{
		ShippingAddress: orders.ShippingAddress{
			Name:        "Taro Yamada",
			PostalCode:  "150-0001",
			Prefecture:  "Tokyo",
			City:        "Shibuya",
			AddressLine: "1-2-3",
			Phone:       "090-0000-0000",
		},
		PaymentMethod: "credit_card",
	}
}

func TestPlaceOrder_FullScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000, Weight: 200}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// 2 x 3000 at 200g each: under the free-shipping threshold, 400g band.
	if order.Subtotal != 6000 {
		t.Errorf("subtotal = %d, want 6000", order.Subtotal)
	}
	if order.ShippingFee != 500 {
		t.Errorf("shipping fee = %d, want 500", order.ShippingFee)
	}
	if order.TaxAmount != 600 {
		t.Errorf("tax = %d, want 600", order.TaxAmount)
	}
	if order.TotalAmount != 7100 {
		t.Errorf("total = %d, want 7100", order.TotalAmount)
	}
	if order.Status != orders.StatusPending || order.PaymentStatus != orders.PaymentPending {
		t.Errorf("status = %s/%s, want pending/pending", order.Status, order.PaymentStatus)
	}
	if !regexp.MustCompile(`^EC\d+$`).MatchString(order.OrderNumber) {
		t.Errorf("order number %q not in EC<digits> form", order.OrderNumber)
	}

	if got := e.reserved(t, "p-1"); got != 2 {
		t.Errorf("reserved = %d, want 2", got)
	}
	items, _ := e.carts.Items(ctx, "u-1")
	if len(items) != 0 {
		t.Errorf("cart not cleared, %d items left", len(items))
	}

	stored, err := e.orders.Get(ctx, order.OrderNumber)
	if err != nil || stored == nil {
		t.Fatalf("stored order missing: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].ProductName != "Mug" || stored.Items[0].TotalPrice != 6000 {
		t.Errorf("bad item snapshot: %+v", stored.Items)
	}
}

func TestPlaceOrder_SnapshotSurvivesCatalogEdit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// Reprice the product after the fact; the snapshot must not move.
	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug Deluxe", Price: 9999}, 10)

	stored, _ := e.orders.Get(ctx, order.OrderNumber)
	if stored.Items[0].ProductPrice != 3000 || stored.Items[0].ProductName != "Mug" {
		t.Errorf("snapshot changed: %+v", stored.Items[0])
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.PlaceOrder(context.Background(), "u-1", defaultInput())
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestPlaceOrder_MissingPaymentMethod(t *testing.T) {
	e := newEnv(t)
	in := defaultInput()
	in.PaymentMethod = ""
	_, err := e.svc.PlaceOrder(context.Background(), "u-1", in)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "payment_method" {
		t.Fatalf("expected payment_method validation error, got %v", err)
	}
}

func TestPlaceOrder_UnavailableProduct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Retired", Price: 1000, Status: catalog.StatusInactive}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "product_id" {
		t.Fatalf("expected product_id validation error, got %v", err)
	}
	if got := e.reserved(t, "p-1"); got != 0 {
		t.Errorf("reserved = %d, want 0", got)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 1)
	if err := e.carts.Put(ctx, "u-1", "p-1", 3); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	var ise *inventory.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if ise.Available != 1 {
		t.Errorf("available = %d, want 1", ise.Available)
	}

	if got := e.reserved(t, "p-1"); got != 0 {
		t.Errorf("reserved = %d, want 0", got)
	}
	items, _ := e.carts.Items(ctx, "u-1")
	if len(items) != 1 {
		t.Errorf("cart should be untouched, has %d items", len(items))
	}
}

func TestPlaceOrder_ReleasesReservationWhenCreateFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	e.fake.FailPutTable = ordersTable

	_, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	if got := e.reserved(t, "p-1"); got != 0 {
		t.Errorf("reservation not compensated, reserved = %d", got)
	}
	items, _ := e.carts.Items(ctx, "u-1")
	if len(items) != 1 {
		t.Errorf("cart should survive a failed checkout, has %d items", len(items))
	}
	if e.fake.Len(ordersTable) != 0 {
		t.Errorf("no order should exist, table has %d", e.fake.Len(ordersTable))
	}
}

func TestPlaceOrder_RetriesOnOrderNumberCollision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.svc.nowFunc = func() time.Time { return fixed }
	suffixes := []int{7, 8}
	e.svc.randFunc = func(n int) int {
		v := suffixes[0]
		if len(suffixes) > 1 {
			suffixes = suffixes[1:]
		}
		return v
	}

	// Occupy the number the first attempt will generate.
	taken := orders.Order{
		OrderNumber: "EC" + timestampMillis(fixed) + "0007",
		UserID:      "other",
		Status:      orders.StatusPending,
	}
	if err := e.orders.Create(ctx, &taken); err != nil {
		t.Fatalf("seed colliding order: %v", err)
	}

	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if want := "EC" + timestampMillis(fixed) + "0008"; order.OrderNumber != want {
		t.Errorf("order number = %q, want %q", order.OrderNumber, want)
	}
}

func TestCancelOrder_ReleasesStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	cancelled, err := e.svc.CancelOrder(ctx, "u-1", order.OrderNumber)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != orders.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if got := e.reserved(t, "p-1"); got != 0 {
		t.Errorf("reserved = %d, want 0 after cancel", got)
	}
}

func TestCancelOrder_RejectsShipped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if _, err := e.svc.ConfirmPayment(ctx, "u-1", order.OrderNumber); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := e.orders.MarkShipped(ctx, order.OrderNumber, "TRK-1"); err != nil {
		t.Fatalf("ship: %v", err)
	}

	if _, err := e.svc.CancelOrder(ctx, "u-1", order.OrderNumber); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
	if got := e.reserved(t, "p-1"); got != 1 {
		t.Errorf("reserved = %d, want 1 (cancel must not touch a shipped order)", got)
	}
}

func TestCancelOrder_OwnershipHidesOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := e.svc.CancelOrder(ctx, "u-intruder", order.OrderNumber); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign order, got %v", err)
	}
}

func TestConfirmPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	if err := e.carts.Put(ctx, "u-1", "p-1", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	order, err := e.svc.PlaceOrder(ctx, "u-1", defaultInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	paid, err := e.svc.ConfirmPayment(ctx, "u-1", order.OrderNumber)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != orders.StatusPaid || paid.PaymentStatus != orders.PaymentPaid {
		t.Errorf("status = %s/%s, want paid/paid", paid.Status, paid.PaymentStatus)
	}

	if _, err := e.svc.ConfirmPayment(ctx, "u-1", order.OrderNumber); !errors.Is(err, ErrNotPayable) {
		t.Fatalf("expected ErrNotPayable on double pay, got %v", err)
	}
}

func TestOrders_ListIsScopedToUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seedProduct(t, catalog.Product{ProductID: "p-1", Name: "Mug", Price: 3000}, 10)
	for _, uid := range []string{"u-1", "u-2"} {
		if err := e.carts.Put(ctx, uid, "p-1", 1); err != nil {
			t.Fatalf("seed cart: %v", err)
		}
		if _, err := e.svc.PlaceOrder(ctx, uid, defaultInput()); err != nil {
			t.Fatalf("place order for %s: %v", uid, err)
		}
	}

	list, err := e.svc.Orders(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].UserID != "u-1" {
		t.Fatalf("expected exactly u-1's order, got %+v", list)
	}
}

func timestampMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
