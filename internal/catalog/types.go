package catalog

import "time"

// Product statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDraft    = "draft"
)

// Product is a catalog row. Price is whole currency units, Weight is grams
// per unit (0 = unknown; pricing substitutes a default).
type Product struct {
	ProductID   string    `dynamodbav:"product_id"` // PK
	Name        string    `dynamodbav:"name"`
	Description string    `dynamodbav:"description,omitempty"`
	Price       int       `dynamodbav:"price"`
	Weight      int       `dynamodbav:"weight,omitempty"`
	SKU         string    `dynamodbav:"sku,omitempty"`
	Status      string    `dynamodbav:"status"`
	Featured    bool      `dynamodbav:"featured,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}
