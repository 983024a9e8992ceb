package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarium/go-shop-fulfillment/internal/checkout"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
)

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{"success": false, "error": code})
}

func respondMessage(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": code, "message": message})
}

// respondCheckoutError maps checkout errors onto the envelope. Infrastructure
// details stay in the logs.
func respondCheckoutError(c *gin.Context, err error) {
	var ve *checkout.ValidationError
	var ise *inventory.InsufficientStockError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(c, http.StatusBadRequest, "empty_cart")
	case errors.Is(err, checkout.ErrNotFound):
		respondError(c, http.StatusNotFound, "order_not_found")
	case errors.Is(err, checkout.ErrNotCancellable):
		respondError(c, http.StatusConflict, "order_not_cancellable")
	case errors.Is(err, checkout.ErrNotPayable):
		respondError(c, http.StatusConflict, "order_not_payable")
	case errors.As(err, &ve):
		respondMessage(c, http.StatusBadRequest, "validation_failed", ve.Error())
	case errors.As(err, &ise):
		respondMessage(c, http.StatusConflict, "insufficient_stock", ise.Error())
	default:
		log.Printf("checkout error: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error")
	}
}
