package awstest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS captures sent messages.
type SQS struct {
	mu       sync.Mutex
	Messages []sqs.SendMessageInput
}

func (s *SQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, *params)
	return &sqs.SendMessageOutput{}, nil
}

// Sent returns a copy of the captured messages.
func (s *SQS) Sent() []sqs.SendMessageInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sqs.SendMessageInput(nil), s.Messages...)
}

// SES captures sent emails, optionally failing every send.
type SES struct {
	mu      sync.Mutex
	Emails  []sesv2.SendEmailInput
	FailErr error
}

func (s *SES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailErr != nil {
		return nil, s.FailErr
	}
	s.Emails = append(s.Emails, *params)
	return &sesv2.SendEmailOutput{}, nil
}

// Sent returns a copy of the captured emails.
func (s *SES) Sent() []sesv2.SendEmailInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sesv2.SendEmailInput(nil), s.Emails...)
}

// CloudWatch counts metric calls.
type CloudWatch struct {
	mu    sync.Mutex
	Calls int
}

func (c *CloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	return &cloudwatch.PutMetricDataOutput{}, nil
}
