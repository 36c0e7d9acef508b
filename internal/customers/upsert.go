package customers

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpsertInput carries the profile mutation derived from one accepted order.
// Optional fields follow Set-or-NoOp semantics: a zero value means "leave the
// stored value alone", never "clear it".
type UpsertInput struct {
	Email           string // lowercase
	Name            string
	Phone           string
	ShippingAddress *Address
	Billing         *BillingDetails
	Birthday        string // YYYY-MM-DD, optional
	OrderTotal      float64
	LoyaltyPoints   int
	Now             time.Time
}

// Upsert is a prepared customer profile update, ready to drop into an
// UpdateItem or a transactional Update.
type Upsert struct {
	UpdateExpression          string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
}

// BuildUpsert translates an UpsertInput into a DynamoDB update expression.
// Counters go through ADD so the upsert works whether or not the profile
// exists; created_at uses if_not_exists to survive repeat orders.
func BuildUpsert(in UpsertInput) (Upsert, error) {
	ts := in.Now.UTC().Format(time.RFC3339)

	names := map[string]string{"#n": "name"}
	values := map[string]types.AttributeValue{
		":name":   &types.AttributeValueMemberS{Value: in.Name},
		":ts":     &types.AttributeValueMemberS{Value: ts},
		":one":    &types.AttributeValueMemberN{Value: "1"},
		":spend":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%.2f", in.OrderTotal)},
		":points": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", in.LoyaltyPoints)},
	}

	set := "#n = :name, last_order_at = :ts, updated_at = :ts, created_at = if_not_exists(created_at, :ts)"

	if in.Phone != "" {
		set += ", phone = :phone"
		values[":phone"] = &types.AttributeValueMemberS{Value: in.Phone}
	}
	if in.ShippingAddress != nil {
		av, err := attributevalue.Marshal(in.ShippingAddress)
		if err != nil {
			return Upsert{}, fmt.Errorf("marshal address: %w", err)
		}
		set += ", default_address = :addr"
		values[":addr"] = av
	}
	if in.Billing != nil {
		av, err := attributevalue.Marshal(in.Billing)
		if err != nil {
			return Upsert{}, fmt.Errorf("marshal billing: %w", err)
		}
		set += ", default_billing = :billing"
		values[":billing"] = av
	}
	if in.Birthday != "" {
		set += ", birthday = :birthday"
		values[":birthday"] = &types.AttributeValueMemberS{Value: in.Birthday}
	}

	expr := "SET " + set + " ADD order_count :one, total_spent :spend, loyalty_points :points"

	return Upsert{
		UpdateExpression:          expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, nil
}
