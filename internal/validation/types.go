package validation

// ShippingAddress is the address payload for checkout. Every field the
// warehouse needs to print a label is required.
type ShippingAddress struct {
	Name        string `json:"name" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	Prefecture  string `json:"prefecture" validate:"required"`
	City        string `json:"city" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	Building    string `json:"building,omitempty"`
	Phone       string `json:"phone" validate:"required"`
}

// CreateOrderRequest is the payload for POST /orders. Line items come from
// the server-side cart, never from the request.
type CreateOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shipping_address" validate:"required"`
	PaymentMethod   string          `json:"payment_method" validate:"required,oneof=credit_card paypay paidy bank_transfer convenience_store"`
	Notes           string          `json:"notes,omitempty"`
}

// AddToCartRequest is the payload for POST /cart/add.
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// UpdateCartItemRequest is the payload for PUT /cart/update/:productId.
// Quantity 0 removes the item.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ShareRequest is the payload for POST /social/share/:productId.
type ShareRequest struct {
	Platform string `json:"platform" validate:"required,oneof=twitter facebook instagram line copy_link"`
}

// UpdateProfileRequest is the payload for PUT /social/profile. Nil fields
// are left untouched; only the fields enumerated here can ever be written.
type UpdateProfileRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone           *string `json:"phone,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	TwitterHandle   *string `json:"twitter_handle,omitempty"`
	InstagramHandle *string `json:"instagram_handle,omitempty"`
	FacebookURL     *string `json:"facebook_url,omitempty" validate:"omitempty,url"`
	YoutubeURL      *string `json:"youtube_url,omitempty" validate:"omitempty,url"`
	TiktokHandle    *string `json:"tiktok_handle,omitempty"`
	LinkedinURL     *string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	WebsiteURL      *string `json:"website_url,omitempty" validate:"omitempty,url"`
}
