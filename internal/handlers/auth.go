package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hikarium/go-shop-fulfillment/internal/auth"
	"github.com/hikarium/go-shop-fulfillment/internal/users"
	"github.com/hikarium/go-shop-fulfillment/internal/validation"
)

// RegisterAuthRoutes registers registration, login and the current-user
// endpoint.
func RegisterAuthRoutes(r *gin.Engine, cfg Config) {
	r.POST("/auth/register", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.RegisterRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			log.Printf("hash password: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}

		user := users.User{
			Email:        req.Email,
			UserID:       uuid.NewString(),
			PasswordHash: hash,
			Name:         req.Name,
			Phone:        req.Phone,
		}
		if err := cfg.Users.Create(ctx, &user); err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				respondError(c, http.StatusConflict, "email_taken")
				return
			}
			log.Printf("create user: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}

		token, err := cfg.Tokens.Issue(auth.Identity{UserID: user.UserID, Email: user.Email, Name: user.Name})
		if err != nil {
			log.Printf("issue token: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusCreated, gin.H{"token": token, "user": userJSON(&user)})
	})

	r.POST("/auth/login", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.LoginRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		user, err := cfg.Users.GetByEmail(ctx, req.Email)
		if err != nil {
			log.Printf("login lookup: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		if user == nil || !users.CheckPassword(req.Password, user.PasswordHash) {
			respondError(c, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		token, err := cfg.Tokens.Issue(auth.Identity{UserID: user.UserID, Email: user.Email, Name: user.Name})
		if err != nil {
			log.Printf("issue token: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		respondData(c, http.StatusOK, gin.H{"token": token, "user": userJSON(user)})
	})

	r.GET("/auth/me", auth.RequireUser(cfg.Tokens), func(c *gin.Context) {
		id, _ := auth.UserFrom(c)
		user, err := cfg.Users.GetByEmail(c.Request.Context(), id.Email)
		if err != nil {
			log.Printf("load current user: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error")
			return
		}
		if user == nil {
			respondError(c, http.StatusNotFound, "user_not_found")
			return
		}
		respondData(c, http.StatusOK, userJSON(user))
	})
}

// userJSON is the public projection of a user record. The password hash never
// crosses this boundary.
func userJSON(u *users.User) gin.H {
	return gin.H{
		"user_id":          u.UserID,
		"email":            u.Email,
		"name":             u.Name,
		"phone":            u.Phone,
		"bio":              u.Bio,
		"twitter_handle":   u.TwitterHandle,
		"instagram_handle": u.InstagramHandle,
		"facebook_url":     u.FacebookURL,
		"youtube_url":      u.YoutubeURL,
		"tiktok_handle":    u.TiktokHandle,
		"linkedin_url":     u.LinkedinURL,
		"website_url":      u.WebsiteURL,
		"created_at":       u.CreatedAt,
	}
}
