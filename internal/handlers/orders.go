package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarium/go-shop-fulfillment/internal/auth"
	"github.com/hikarium/go-shop-fulfillment/internal/checkout"
	"github.com/hikarium/go-shop-fulfillment/internal/idempotency"
	"github.com/hikarium/go-shop-fulfillment/internal/orders"
	"github.com/hikarium/go-shop-fulfillment/internal/validation"
)

// RegisterOrderRoutes registers the authenticated order endpoints.
func RegisterOrderRoutes(r *gin.Engine, cfg Config) {
	g := r.Group("/orders", auth.RequireUser(cfg.Tokens))

	g.POST("", func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := auth.UserFrom(c)

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		// With an Idempotency-Key, a duplicate request replays the first
		// attempt's response instead of placing a second order.
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey != "" && !claimIdempotencyKey(c, cfg, idempKey) {
			return
		}

		order, err := cfg.Checkout.PlaceOrder(ctx, id.UserID, checkout.PlaceOrderInput{
			ShippingAddress: orders.ShippingAddress{
				Name:        req.ShippingAddress.Name,
				PostalCode:  req.ShippingAddress.PostalCode,
				Prefecture:  req.ShippingAddress.Prefecture,
				City:        req.ShippingAddress.City,
				AddressLine: req.ShippingAddress.AddressLine,
				Building:    req.ShippingAddress.Building,
				Phone:       req.ShippingAddress.Phone,
			},
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		})
		if err != nil {
			if idempKey != "" {
				if merr := cfg.Idempotency.MarkFailed(ctx, idempKey, err.Error()); merr != nil {
					log.Printf("mark idempotency failed: %v", merr)
				}
			}
			respondCheckoutError(c, err)
			return
		}

		body, _ := json.Marshal(gin.H{"success": true, "data": order})
		if idempKey != "" {
			if merr := cfg.Idempotency.MarkDone(ctx, idempKey, order.OrderNumber, string(body), http.StatusCreated); merr != nil {
				log.Printf("mark idempotency done: %v", merr)
			}
		}
		c.Data(http.StatusCreated, "application/json", body)
	})

	g.GET("", func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		list, err := cfg.Checkout.Orders(c.Request.Context(), id.UserID)
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		respondData(c, http.StatusOK, list)
	})

	g.GET("/:orderNumber", func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		order, err := cfg.Checkout.Order(c.Request.Context(), id.UserID, c.Param("orderNumber"))
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		respondData(c, http.StatusOK, order)
	})

	g.POST("/:orderNumber/cancel", func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		order, err := cfg.Checkout.CancelOrder(c.Request.Context(), id.UserID, c.Param("orderNumber"))
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		respondData(c, http.StatusOK, order)
	})

	g.POST("/:orderNumber/pay", func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		order, err := cfg.Checkout.ConfirmPayment(c.Request.Context(), id.UserID, c.Param("orderNumber"))
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		respondData(c, http.StatusOK, order)
	})
}

// claimIdempotencyKey takes ownership of the key for this request. Returns
// false when the response was already written (replay, in-progress, error).
// A FAILED key is re-claimed so the client can retry.
func claimIdempotencyKey(c *gin.Context, cfg Config, key string) bool {
	ctx := c.Request.Context()

	created, err := cfg.Idempotency.CreateIfNotExists(ctx, key)
	if err != nil {
		log.Printf("claim idempotency key: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error")
		return false
	}
	if created {
		return true
	}

	rec, err := cfg.Idempotency.Get(ctx, key)
	if err != nil || rec == nil {
		log.Printf("load idempotency record: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error")
		return false
	}
	switch rec.Status {
	case idempotency.StatusDone:
		c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
		return false
	case idempotency.StatusInProgress:
		respondMessage(c, http.StatusAccepted, "request_in_progress",
			"the original request is still being processed")
		return false
	case idempotency.StatusFailed:
		return true
	default:
		respondError(c, http.StatusInternalServerError, "internal_error")
		return false
	}
}
