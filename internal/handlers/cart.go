package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarium/go-shop-fulfillment/internal/auth"
	"github.com/hikarium/go-shop-fulfillment/internal/cart"
	"github.com/hikarium/go-shop-fulfillment/internal/catalog"
	"github.com/hikarium/go-shop-fulfillment/internal/validation"
)

// RegisterCartRoutes registers the authenticated cart endpoints.
func RegisterCartRoutes(r *gin.Engine, cfg Config) {
	g := r.Group("/cart", auth.RequireUser(cfg.Tokens))

	g.GET("", func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := auth.UserFrom(c)

		items, err := cfg.Carts.Items(ctx, id.UserID)
		if err != nil {
			log.Printf("load cart: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}

		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ProductID
		}
		products, err := cfg.Catalog.BatchGet(ctx, ids)
		if err != nil {
			log.Printf("load cart products: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}

		lines := make([]gin.H, 0, len(items))
		subtotal := 0
		for _, it := range items {
			p, ok := products[it.ProductID]
			line := gin.H{
				"product_id": it.ProductID,
				"quantity":   it.Quantity,
			}
			if ok {
				available := 0
				if rec, err := cfg.Inventory.Get(ctx, it.ProductID); err == nil && rec != nil {
					available = rec.Available()
				}
				line["name"] = p.Name
				line["price"] = p.Price
				line["total_price"] = p.Price * it.Quantity
				line["available"] = available
				subtotal += p.Price * it.Quantity
			}
			lines = append(lines, line)
		}
		respondData(c, http.StatusOK, gin.H{"items": lines, "subtotal": subtotal})
	})

	g.POST("/add", func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := auth.UserFrom(c)

		var req validation.AddToCartRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		existing, err := cfg.Carts.Get(ctx, id.UserID, req.ProductID)
		if err != nil {
			log.Printf("load cart item: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		quantity := req.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		if !setCartQuantity(c, cfg, id.UserID, req.ProductID, quantity) {
			return
		}
		respondData(c, http.StatusOK, gin.H{"product_id": req.ProductID, "quantity": quantity})
	})

	g.PUT("/update/:productId", func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := auth.UserFrom(c)
		productID := c.Param("productId")

		var req validation.UpdateCartItemRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		if req.Quantity == 0 {
			if err := cfg.Carts.Remove(ctx, id.UserID, productID); err != nil && !errors.Is(err, cart.ErrItemNotFound) {
				log.Printf("remove cart item: %v", err)
				respondError(c, http.StatusInternalServerError, "internal_error")
				return
			}
			respondData(c, http.StatusOK, gin.H{"product_id": productID, "quantity": 0})
			return
		}
		if !setCartQuantity(c, cfg, id.UserID, productID, req.Quantity) {
			return
		}
		respondData(c, http.StatusOK, gin.H{"product_id": productID, "quantity": req.Quantity})
	})

	g.DELETE("/remove/:productId", func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		err := cfg.Carts.Remove(c.Request.Context(), id.UserID, c.Param("productId"))
		if errors.Is(err, cart.ErrItemNotFound) {
			respondError(c, http.StatusNotFound, "cart_item_not_found")
			return
		}
		if err != nil {
			log.Printf("remove cart item: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusOK, gin.H{"removed": true})
	})

	g.DELETE("/clear", func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		if err := cfg.Carts.Clear(c.Request.Context(), id.UserID); err != nil {
			log.Printf("clear cart: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusOK, gin.H{"cleared": true})
	})
}

// setCartQuantity writes the merged quantity after checking the product is
// sellable and the quantity is covered by available stock. Returns false when
// a response has already been written.
func setCartQuantity(c *gin.Context, cfg Config, userID, productID string, quantity int) bool {
	ctx := c.Request.Context()

	product, err := cfg.Catalog.Get(ctx, productID)
	if err != nil {
		log.Printf("load product: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error")
		return false
	}
	if product == nil || product.Status != catalog.StatusActive {
		respondError(c, http.StatusNotFound, "product_not_found")
		return false
	}

	rec, err := cfg.Inventory.Get(ctx, productID)
	if err != nil {
		log.Printf("load inventory: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error")
		return false
	}
	available := 0
	if rec != nil {
		available = rec.Available()
	}
	if quantity > available {
		respondMessage(c, http.StatusConflict, "insufficient_stock",
			"requested quantity exceeds available stock")
		return false
	}

	if err := cfg.Carts.Put(ctx, userID, productID, quantity); err != nil {
		log.Printf("put cart item: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error")
		return false
	}
	return true
}
