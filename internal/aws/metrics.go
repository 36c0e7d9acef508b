package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricNamespace = "Storefront/Orders"

// MetricsEmitter publishes per-tenant order metrics to CloudWatch.
// All emissions are best-effort; callers log and move on.
type MetricsEmitter struct {
	CloudWatch CloudWatchAPI
	nowFunc    func() time.Time
}

// NewMetricsEmitter returns an emitter bound to a CloudWatch client.
func NewMetricsEmitter(cw CloudWatchAPI) *MetricsEmitter {
	return &MetricsEmitter{CloudWatch: cw, nowFunc: time.Now}
}

// EmitOrderPlaced records one placed order and its value for a tenant.
func (m *MetricsEmitter) EmitOrderPlaced(ctx context.Context, tenantID string, total float64) error {
	now := m.nowFunc()
	dims := []cwtypes.Dimension{
		{Name: sdkaws.String("TenantId"), Value: &tenantID},
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(metricNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String("OrdersPlaced"),
				Timestamp:  &now,
				Value:      sdkaws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
			{
				MetricName: sdkaws.String("OrderValue"),
				Timestamp:  &now,
				Value:      sdkaws.Float64(total),
				Unit:       cwtypes.StandardUnitNone,
				Dimensions: dims,
			},
		},
	}
	if _, err := m.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
