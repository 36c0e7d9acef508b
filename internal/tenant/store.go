package tenant

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/atelierline/storefront-orders/internal/aws"
)

// Store reads tenant and delivery configuration.
type Store struct {
	client        aws.DynamoDBAPI
	configTable   string
	deliveryTable string
}

// NewStore creates a tenant Store over the config and delivery tables.
func NewStore(client aws.DynamoDBAPI, configTable, deliveryTable string) *Store {
	return &Store{client: client, configTable: configTable, deliveryTable: deliveryTable}
}

// GetConfig fetches the tenant configuration. A missing record yields
// defaults so placement never depends on the tenant having saved settings.
func (s *Store) GetConfig(ctx context.Context, tenantID string) (*Config, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.configTable,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get tenant config: %w", err)
	}
	if len(out.Item) == 0 {
		return defaultConfig(tenantID), nil
	}
	var c Config
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal tenant config: %w", err)
	}
	if c.Currency == "" {
		c.Currency = "RON"
	}
	if c.OrderPrefix == "" {
		c.OrderPrefix = "ORD"
	}
	if c.SiteName == "" {
		c.SiteName = tenantID
	}
	return &c, nil
}

// GetDeliveryConfig fetches the delivery configuration. Returns (nil, nil)
// when the tenant has none; callers treat that as flat-cost-zero, no zones.
func (s *Store) GetDeliveryConfig(ctx context.Context, tenantID string) (*DeliveryConfig, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.deliveryTable,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get delivery config: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c DeliveryConfig
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal delivery config: %w", err)
	}
	return &c, nil
}

func defaultConfig(tenantID string) *Config {
	return &Config{
		TenantID:    tenantID,
		SiteName:    tenantID,
		Currency:    "RON",
		OrderPrefix: "ORD",
	}
}
