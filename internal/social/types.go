package social

import "time"

// Share is one recorded share event, keyed by share_id.
type Share struct {
	ShareID   string    `dynamodbav:"share_id"` // PK
	ProductID string    `dynamodbav:"product_id"`
	Platform  string    `dynamodbav:"platform"`
	UserID    string    `dynamodbav:"user_id,omitempty"` // empty for anonymous shares
	CreatedAt time.Time `dynamodbav:"created_at"`
}
