package inventory

import (
	"fmt"
	"time"
)

// Record is one row of the inventory ledger, keyed by product.
// reserved_quantity never exceeds stock_quantity and never goes negative;
// available stock is always stock - reserved.
type Record struct {
	ProductID        string    `dynamodbav:"product_id"` // PK
	StockQuantity    int       `dynamodbav:"stock_quantity"`
	ReservedQuantity int       `dynamodbav:"reserved_quantity"`
	UpdatedAt        time.Time `dynamodbav:"updated_at"`
}

// Available returns the sellable quantity.
func (r Record) Available() int {
	return r.StockQuantity - r.ReservedQuantity
}

// Line is one (product, quantity) pair of a reservation batch.
type Line struct {
	ProductID string
	Quantity  int
}

// InsufficientStockError reports the first product of a batch that cannot be
// covered, along with how many units were actually available.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (available: %d)", e.ProductID, e.Available)
}
