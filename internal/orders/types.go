package orders

import "time"

// Order statuses
const (
	StatusPending    = "pending"
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// Payment statuses
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Cancellable reports whether an order in the given status may still be
// cancelled by the customer.
func Cancellable(status string) bool {
	return status == StatusPending || status == StatusPaid
}

// Item is a line-item snapshot embedded in the order record. Name and price
// are captured at order-creation time and immune to later catalog edits.
type Item struct {
	ProductID    string `dynamodbav:"product_id" json:"product_id"`
	ProductName  string `dynamodbav:"product_name" json:"product_name"`
	ProductPrice int    `dynamodbav:"product_price" json:"product_price"`
	Quantity     int    `dynamodbav:"quantity" json:"quantity"`
	TotalPrice   int    `dynamodbav:"total_price" json:"total_price"`
}

// ShippingAddress is the address snapshot embedded in the order record.
type ShippingAddress struct {
	Name        string `dynamodbav:"name" json:"name"`
	PostalCode  string `dynamodbav:"postal_code" json:"postal_code"`
	Prefecture  string `dynamodbav:"prefecture" json:"prefecture"`
	City        string `dynamodbav:"city" json:"city"`
	AddressLine string `dynamodbav:"address_line" json:"address_line"`
	Building    string `dynamodbav:"building,omitempty" json:"building,omitempty"`
	Phone       string `dynamodbav:"phone" json:"phone"`
}

// Order is the record stored in the orders table, keyed by order number.
type Order struct {
	OrderNumber   string `dynamodbav:"order_number" json:"order_number"` // PK
	UserID        string `dynamodbav:"user_id" json:"user_id"`           // GSI user_id-index
	Status        string `dynamodbav:"status" json:"status"`
	PaymentMethod string `dynamodbav:"payment_method" json:"payment_method"`
	PaymentStatus string `dynamodbav:"payment_status" json:"payment_status"`

	Subtotal    int `dynamodbav:"subtotal" json:"subtotal"`
	ShippingFee int `dynamodbav:"shipping_fee" json:"shipping_fee"`
	TaxAmount   int `dynamodbav:"tax_amount" json:"tax_amount"`
	TotalAmount int `dynamodbav:"total_amount" json:"total_amount"`

	ShippingAddress ShippingAddress `dynamodbav:"shipping_address" json:"shipping_address"`
	Items           []Item          `dynamodbav:"items" json:"items"`

	Notes              string     `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	TrackingNumber     string     `dynamodbav:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	PaymentConfirmedAt *time.Time `dynamodbav:"payment_confirmed_at,omitempty" json:"payment_confirmed_at,omitempty"`
	ShippedAt          *time.Time `dynamodbav:"shipped_at,omitempty" json:"shipped_at,omitempty"`

	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}
