package orders

import (
	"context"
	"fmt"
	"strconv"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/atelierline/storefront-orders/internal/aws"
)

// Counter allocates tenant-scoped order sequence numbers. Allocation is a
// single atomic ADD, deliberately outside the commit transaction: a number
// can be burned if a later stage aborts, and that is acceptable.
type Counter struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewCounter creates a Counter over the counters table.
func NewCounter(client aws.DynamoDBAPI, tableName string) *Counter {
	return &Counter{client: client, tableName: tableName}
}

// AllocateNext increments and returns the tenant's counter. The counter item
// is created on first use; concurrent callers never observe the same value.
func (c *Counter) AllocateNext(ctx context.Context, tenantID string) (uint64, error) {
	out, err := c.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &c.tableName,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		},
		UpdateExpression: awsString("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}

	attr, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter returned no seq attribute")
	}
	n, err := strconv.ParseUint(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter value %q: %w", attr.Value, err)
	}
	return n, nil
}

// FormatOrderNumber renders the human-facing order number: prefix plus the
// counter zero-padded to 4 digits. Values beyond 9999 simply widen.
func FormatOrderNumber(prefix string, n uint64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}
