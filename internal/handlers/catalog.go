package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterCatalogRoutes registers the public product endpoints.
func RegisterCatalogRoutes(r *gin.Engine, cfg Config) {
	r.GET("/products", func(c *gin.Context) {
		products, err := cfg.Catalog.ListActive(c.Request.Context())
		if err != nil {
			log.Printf("list products: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusOK, products)
	})

	r.GET("/products/:productId", func(c *gin.Context) {
		ctx := c.Request.Context()
		productID := c.Param("productId")

		product, err := cfg.Catalog.Get(ctx, productID)
		if err != nil {
			log.Printf("get product: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		if product == nil {
			respondError(c, http.StatusNotFound, "product_not_found")
			return
		}

		available := 0
		if rec, err := cfg.Inventory.Get(ctx, productID); err != nil {
			log.Printf("get inventory for %s: %v", productID, err)
		} else if rec != nil {
			available = rec.Available()
		}

		respondData(c, http.StatusOK, gin.H{
			"product":   product,
			"available": available,
		})
	})
}
