package cart

import "time"

// Item is one row of the carts table, keyed (user_id, product_id).
type Item struct {
	UserID    string    `dynamodbav:"user_id"`    // PK
	ProductID string    `dynamodbav:"product_id"` // SK
	Quantity  int       `dynamodbav:"quantity"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}
