package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// NotificationJob is the payload sent from the API to the notifier via SQS.
// One job is published per order event (placement or status transition); the
// notifier re-reads the order and tenant config, so the job stays small.
type NotificationJob struct {
	TenantID      string `json:"tenant_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// SendNotificationJob publishes a notification job. The tenant, order and
// status travel both in the body and as message attributes for filtering.
func (p *Publisher) SendNotificationJob(ctx context.Context, job NotificationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job: %w", err)
	}
	payload := string(body)

	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &payload,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"tenant_id": {DataType: awsString("String"), StringValue: &job.TenantID},
			"order_id":  {DataType: awsString("String"), StringValue: &job.OrderID},
			"status":    {DataType: awsString("String"), StringValue: &job.Status},
		},
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
