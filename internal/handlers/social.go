package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarium/go-shop-fulfillment/internal/auth"
	"github.com/hikarium/go-shop-fulfillment/internal/users"
	"github.com/hikarium/go-shop-fulfillment/internal/validation"
)

// RegisterSocialRoutes registers share recording and profile editing.
func RegisterSocialRoutes(r *gin.Engine, cfg Config) {
	// Shares work for anonymous visitors too; a valid token just attributes
	// the share to the user.
	r.POST("/social/share/:productId", auth.OptionalUser(cfg.Tokens), func(c *gin.Context) {
		ctx := c.Request.Context()
		productID := c.Param("productId")

		var req validation.ShareRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		product, err := cfg.Catalog.Get(ctx, productID)
		if err != nil {
			log.Printf("load product for share: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		if product == nil {
			respondError(c, http.StatusNotFound, "product_not_found")
			return
		}

		userID := ""
		if id, ok := auth.UserFrom(c); ok {
			userID = id.UserID
		}
		share, err := cfg.Social.RecordShare(ctx, productID, req.Platform, userID)
		if err != nil {
			log.Printf("record share: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusCreated, gin.H{
			"share_id": share.ShareID,
			"platform": share.Platform,
		})
	})

	r.GET("/social/stats/:productId", func(c *gin.Context) {
		productID := c.Param("productId")
		counts, err := cfg.Social.StatsByProduct(c.Request.Context(), productID)
		if err != nil {
			log.Printf("share stats: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		respondData(c, http.StatusOK, gin.H{
			"product_id": productID,
			"total":      total,
			"platforms":  counts,
		})
	})

	r.GET("/social/profile", auth.RequireUser(cfg.Tokens), func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		user, err := cfg.Users.GetByEmail(c.Request.Context(), id.Email)
		if err != nil {
			log.Printf("load profile: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		if user == nil {
			respondError(c, http.StatusNotFound, "user_not_found")
			return
		}
		respondData(c, http.StatusOK, userJSON(user))
	})

	r.PUT("/social/profile", auth.RequireUser(cfg.Tokens), func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := auth.UserFrom(c)

		var req validation.UpdateProfileRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		upd := users.ProfileUpdate{
			Name:            req.Name,
			Phone:           req.Phone,
			Bio:             req.Bio,
			TwitterHandle:   req.TwitterHandle,
			InstagramHandle: req.InstagramHandle,
			FacebookURL:     req.FacebookURL,
			YoutubeURL:      req.YoutubeURL,
			TiktokHandle:    req.TiktokHandle,
			LinkedinURL:     req.LinkedinURL,
			WebsiteURL:      req.WebsiteURL,
		}
		if err := cfg.Users.UpdateProfile(ctx, id.Email, upd); err != nil {
			log.Printf("update profile: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}

		user, err := cfg.Users.GetByEmail(ctx, id.Email)
		if err != nil || user == nil {
			log.Printf("reload profile: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusOK, userJSON(user))
	})
}
