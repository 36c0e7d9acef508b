package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/atelierline/storefront-orders/internal/aws"
	"github.com/atelierline/storefront-orders/internal/customers"
)

// ErrTransactionFailed wraps a canceled commit transaction; no partial
// writes exist when it is returned.
var ErrTransactionFailed = errors.New("order transaction failed")

// ErrStatusMismatch means a status transition lost a conditional check
// against the currently stored status.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store owns all durable order writes: the one-shot commit transaction,
// reads, and status transitions.
type Store struct {
	client         aws.DynamoDBAPI
	ordersTable    string
	indexTable     string
	customersTable string
	couponsTable   string
	nowFunc        func() time.Time
}

// NewStore creates an orders Store over the four tables the commit touches.
func NewStore(client aws.DynamoDBAPI, ordersTable, indexTable, customersTable, couponsTable string) *Store {
	return &Store{
		client:         client,
		ordersTable:    ordersTable,
		indexTable:     indexTable,
		customersTable: customersTable,
		couponsTable:   couponsTable,
		nowFunc:        time.Now,
	}
}

// CommitInput is a fully validated order plus the commit side effects that
// do not live on the order record itself.
type CommitInput struct {
	Order            Order
	CustomerBirthday string // optional, YYYY-MM-DD
}

// CommitOrder performs the all-or-nothing placement transaction:
//   - Put the order in state `placed` (guarded by attribute_not_exists)
//   - Put the customer-order index entry
//   - upsert the customer profile (counters via ADD, optional fields Set-or-NoOp)
//   - if a coupon was applied, increment its usage count
//
// The order counter is allocated before this call and is intentionally not
// part of the transaction. The coupon increment carries no usage-limit
// condition; the limit is a soft gate checked at validation time.
func (s *Store) CommitOrder(ctx context.Context, in CommitInput) error {
	now := s.nowFunc().UTC()
	order := in.Order
	order.Status = StatusPlaced
	order.StatusHistory = []StatusEntry{{Status: StatusPlaced, Timestamp: now, Note: "Order placed"}}
	order.CreatedAt = now
	order.UpdatedAt = now

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	entry := IndexEntry{
		TenantID:    order.TenantID,
		SK:          order.CustomerEmail + "#" + order.OrderID,
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		Email:       order.CustomerEmail,
		Total:       order.Total,
		Status:      StatusPlaced,
		PlacedAt:    now,
	}
	entryMap, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal index entry: %w", err)
	}

	upsert, err := customers.BuildUpsert(customers.UpsertInput{
		Email:           order.CustomerEmail,
		Name:            order.CustomerName,
		Phone:           order.CustomerPhone,
		ShippingAddress: order.ShippingAddress,
		Billing:         order.BillingDetails,
		Birthday:        in.CustomerBirthday,
		OrderTotal:      order.Total,
		LoyaltyPoints:   int(math.Floor(order.Total)),
		Now:             now,
	})
	if err != nil {
		return fmt.Errorf("build customer upsert: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &s.ordersTable,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
		{
			Put: &types.Put{
				TableName: &s.indexTable,
				Item:      entryMap,
			},
		},
		{
			Update: &types.Update{
				TableName: &s.customersTable,
				Key: map[string]types.AttributeValue{
					"tenant_id": &types.AttributeValueMemberS{Value: order.TenantID},
					"email":     &types.AttributeValueMemberS{Value: order.CustomerEmail},
				},
				UpdateExpression:          &upsert.UpdateExpression,
				ExpressionAttributeNames:  upsert.ExpressionAttributeNames,
				ExpressionAttributeValues: upsert.ExpressionAttributeValues,
			},
		},
	}

	if order.CouponID != "" {
		transactItems = append(transactItems, types.TransactWriteItem{
			Update: &types.Update{
				TableName: &s.couponsTable,
				Key: map[string]types.AttributeValue{
					"tenant_id": &types.AttributeValueMemberS{Value: order.TenantID},
					"coupon_id": &types.AttributeValueMemberS{Value: order.CouponID},
				},
				UpdateExpression: awsString("ADD usage_count :one"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":one": &types.AttributeValueMemberN{Value: "1"},
				},
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, tenantID, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"order_id":  &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus transitions expectedStatus -> newStatus and appends a history
// entry in the same conditional update. Tracking number and note are
// Set-or-NoOp. Returns ErrStatusMismatch when the stored status moved.
func (s *Store) UpdateStatus(ctx context.Context, tenantID, orderID, expectedStatus, newStatus, note, trackingNumber string) error {
	now := s.nowFunc().UTC()
	entry, err := attributevalue.Marshal(StatusEntry{Status: newStatus, Timestamp: now, Note: note})
	if err != nil {
		return fmt.Errorf("marshal status entry: %w", err)
	}

	updateExpr := "SET #s = :new, updated_at = :ua, status_history = list_append(status_history, :entry)"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":entry":    &types.AttributeValueMemberL{Value: []types.AttributeValue{entry}},
		":expected": &types.AttributeValueMemberS{Value: expectedStatus},
	}
	if trackingNumber != "" {
		updateExpr += ", tracking_number = :tn"
		values[":tn"] = &types.AttributeValueMemberS{Value: trackingNumber}
	}
	if note != "" {
		updateExpr += ", note = :note"
		values[":note"] = &types.AttributeValueMemberS{Value: note}
	}

	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"order_id":  &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// ListByCustomer returns the customer's index entries, newest key last.
func (s *Store) ListByCustomer(ctx context.Context, tenantID, email string) ([]IndexEntry, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.indexTable,
		KeyConditionExpression: awsString("tenant_id = :t AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":      &types.AttributeValueMemberS{Value: tenantID},
			":prefix": &types.AttributeValueMemberS{Value: email + "#"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query customer orders: %w", err)
	}
	entries := make([]IndexEntry, 0, len(out.Items))
	for _, item := range out.Items {
		var e IndexEntry
		if err := attributevalue.UnmarshalMap(item, &e); err != nil {
			return nil, fmt.Errorf("unmarshal index entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func awsString(s string) *string { return &s }
