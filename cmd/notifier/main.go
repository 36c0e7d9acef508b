package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/atelierline/storefront-orders/internal/aws"
)

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

	p := NewProcessor(clients, ProcessorConfig{
		OrdersTable:       envOr("ORDERS_TABLE", "orders"),
		OrdersIndexTable:  envOr("ORDERS_INDEX_TABLE", "customer-orders"),
		CustomersTable:    envOr("CUSTOMERS_TABLE", "customers"),
		CouponsTable:      envOr("COUPONS_TABLE", "coupons"),
		TenantConfigTable: envOr("TENANT_CONFIG_TABLE", "tenant-config"),
		DeliveryTable:     envOr("DELIVERY_CONFIG_TABLE", "delivery-config"),
		FromEmail:         envOr("FROM_EMAIL", "orders@example.com"),
	})

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"tenant_id":"local-tenant","order_id":"local-order-1","status":"placed"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
