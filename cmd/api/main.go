package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/hikarium/go-shop-fulfillment/internal/auth"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
	"github.com/hikarium/go-shop-fulfillment/internal/cart"
	"github.com/hikarium/go-shop-fulfillment/internal/catalog"
	"github.com/hikarium/go-shop-fulfillment/internal/checkout"
	"github.com/hikarium/go-shop-fulfillment/internal/handlers"
	"github.com/hikarium/go-shop-fulfillment/internal/idempotency"
	"github.com/hikarium/go-shop-fulfillment/internal/inventory"
	"github.com/hikarium/go-shop-fulfillment/internal/orders"
	"github.com/hikarium/go-shop-fulfillment/internal/social"
	"github.com/hikarium/go-shop-fulfillment/internal/users"
	"github.com/hikarium/go-shop-fulfillment/internal/validation"
)

func setupRouter(cfg handlers.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	tokens, err := auth.NewTokens(auth.Config{Secret: os.Getenv("JWT_SECRET")})
	if err != nil {
		log.Fatalf("failed to init token signer: %v", err)
	}

	inventoryStore := inventory.NewStore(clients.DynamoDB, os.Getenv("INVENTORY_TABLE"))
	catalogStore := catalog.NewStore(clients.DynamoDB, os.Getenv("PRODUCTS_TABLE"))
	cartStore := cart.NewStore(clients.DynamoDB, os.Getenv("CARTS_TABLE"))
	orderStore := orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE"))

	checkoutSvc := checkout.NewService(checkout.Deps{
		Inventory: inventoryStore,
		Catalog:   catalogStore,
		Carts:     cartStore,
		Orders:    orderStore,
		Publisher: aws.NewPublisher(clients.SQS, os.Getenv("ORDERS_QUEUE_URL")),
		Metrics:   aws.NewMetrics(clients.CloudWatch, metricsNamespace()),
	})

	cfg := handlers.Config{
		Checkout:    checkoutSvc,
		Users:       users.NewStore(clients.DynamoDB, os.Getenv("USERS_TABLE")),
		Catalog:     catalogStore,
		Inventory:   inventoryStore,
		Carts:       cartStore,
		Social:      social.NewStore(clients.DynamoDB, os.Getenv("SHARES_TABLE")),
		Idempotency: idempotency.NewStore(clients.DynamoDB, os.Getenv("IDEMPOTENCY_TABLE"), 48*time.Hour),
		Tokens:      tokens,
		Validator:   validation.New(),
	}

	r := setupRouter(cfg)

	// RUN_LOCAL=true runs a plain HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func metricsNamespace() string {
	if ns := os.Getenv("METRICS_NAMESPACE"); ns != "" {
		return ns
	}
	return "ShopFulfillment"
}
