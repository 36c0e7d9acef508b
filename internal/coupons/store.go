package coupons

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/atelierline/storefront-orders/internal/aws"
)

// Store resolves coupon codes and reads coupon records. Usage increments
// happen only inside the order commit transaction.
type Store struct {
	client       aws.DynamoDBAPI
	couponsTable string
	codesTable   string
}

// NewStore creates a coupons Store over the coupons and code-lookup tables.
func NewStore(client aws.DynamoDBAPI, couponsTable, codesTable string) *Store {
	return &Store{client: client, couponsTable: couponsTable, codesTable: codesTable}
}

// ResolveCode normalizes a human-entered code and performs the two-step
// code -> id -> coupon lookup. Returns (nil, nil) when either step misses;
// the caller's silent-ignore policy turns that into "no discount".
func (s *Store) ResolveCode(ctx context.Context, tenantID, code string) (*Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}

	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.codesTable,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"code":      &types.AttributeValueMemberS{Value: normalized},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("resolve coupon code: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var entry codeEntry
	if err := attributevalue.UnmarshalMap(out.Item, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal code entry: %w", err)
	}

	return s.Get(ctx, tenantID, entry.CouponID)
}

// Get fetches a coupon by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, tenantID, couponID string) (*Coupon, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.couponsTable,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"coupon_id": &types.AttributeValueMemberS{Value: couponID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Coupon
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal coupon: %w", err)
	}
	return &c, nil
}
