package users

import "time"

// User is the account record, keyed by email with a user_id GSI.
type User struct {
	Email        string    `dynamodbav:"email"`   // PK
	UserID       string    `dynamodbav:"user_id"` // GSI user_id-index
	PasswordHash string    `dynamodbav:"password_hash"`
	Name         string    `dynamodbav:"name"`
	Phone        string    `dynamodbav:"phone,omitempty"`
	Bio          string    `dynamodbav:"bio,omitempty"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`

	// Social profile fields
	TwitterHandle   string `dynamodbav:"twitter_handle,omitempty"`
	InstagramHandle string `dynamodbav:"instagram_handle,omitempty"`
	FacebookURL     string `dynamodbav:"facebook_url,omitempty"`
	YoutubeURL      string `dynamodbav:"youtube_url,omitempty"`
	TiktokHandle    string `dynamodbav:"tiktok_handle,omitempty"`
	LinkedinURL     string `dynamodbav:"linkedin_url,omitempty"`
	WebsiteURL      string `dynamodbav:"website_url,omitempty"`
}

// ProfileUpdate enumerates every field a user may change about themselves.
// Nil means "leave as is". The update expression is built from this struct
// and nothing else; request keys can never reach the database directly.
type ProfileUpdate struct {
	Name            *string
	Phone           *string
	Bio             *string
	TwitterHandle   *string
	InstagramHandle *string
	FacebookURL     *string
	YoutubeURL      *string
	TiktokHandle    *string
	LinkedinURL     *string
	WebsiteURL      *string
}
