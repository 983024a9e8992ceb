// Package handlers exposes the HTTP surface over gin. Handlers bind and
// validate requests, delegate to stores and the checkout service, and map
// domain errors onto the response envelope.
package handlers

import (
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/hikarium/go-shop-fulfillment/internal/auth"
	"github.com/hikarium/go-shop-fulfillment/internal/cart"
	"github.com/hikarium/go-shop-fulfillment/internal/catalog"
	"github.com/hikarium/go-shop-fulfillment/internal/checkout"
	"github.com/hikarium/go-shop-fulfillment/internal/idempotency"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
	"github.com/hikarium/go-shop-fulfillment/internal/social"
	"github.com/hikarium/go-shop-fulfillment/internal/users"
)

// Config groups the dependencies every route registration needs.
type Config struct {
	Checkout    *checkout.Service
	Users       *users.Store
	Catalog     *catalog.Store
	Inventory   *inventory.Store
	Carts       *cart.Store
	Social      *social.Store
	Idempotency *idempotency.Store
	Tokens      *auth.Tokens
	Validator   *validatorv10.Validate
}

// RegisterRoutes mounts the whole API onto r.
func RegisterRoutes(r *gin.Engine, cfg Config) {
	RegisterAuthRoutes(r, cfg)
	RegisterCatalogRoutes(r, cfg)
	RegisterCartRoutes(r, cfg)
	RegisterOrderRoutes(r, cfg)
	RegisterSocialRoutes(r, cfg)
}
