package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/atelierline/storefront-orders/internal/aws"
	"github.com/atelierline/storefront-orders/internal/handlers"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	clients, err := aws.NewAWSClients(context.Background())

	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := handlers.HandlerConfig{
		DynamoDBClient:   clients.DynamoDB,
		SQSClient:        clients.SQS,
		CloudWatchClient: clients.CloudWatch,

		ProductsTable:       envOr("PRODUCTS_TABLE", "products"),
		TenantConfigTable:   envOr("TENANT_CONFIG_TABLE", "tenant-config"),
		DeliveryConfigTable: envOr("DELIVERY_CONFIG_TABLE", "delivery-config"),
		CouponsTable:        envOr("COUPONS_TABLE", "coupons"),
		CouponCodesTable:    envOr("COUPON_CODES_TABLE", "coupon-codes"),
		CountersTable:       envOr("COUNTERS_TABLE", "order-counters"),
		OrdersTable:         envOr("ORDERS_TABLE", "orders"),
		OrdersIndexTable:    envOr("ORDERS_INDEX_TABLE", "customer-orders"),
		CustomersTable:      envOr("CUSTOMERS_TABLE", "customers"),
		IdempotencyTable:    envOr("IDEMPOTENCY_TABLE", "idempotency"),

		QueueURL: os.Getenv("NOTIFICATIONS_QUEUE_URL"),
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
