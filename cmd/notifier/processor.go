package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/atelierline/storefront-orders/internal/aws"
	"github.com/atelierline/storefront-orders/internal/notify"
	"github.com/atelierline/storefront-orders/internal/orders"
	"github.com/atelierline/storefront-orders/internal/tenant"
)

// ProcessorConfig carries the table names and sender identity.
type ProcessorConfig struct {
	OrdersTable       string
	OrdersIndexTable  string
	CustomersTable    string
	CouponsTable      string
	TenantConfigTable string
	DeliveryTable     string
	FromEmail         string
}

// Processor consumes notification jobs and sends the rendered emails.
// Everything here is best-effort: a failed send is logged, never propagated
// back into the order's fate.
type Processor struct {
	ses        aws.SESAPI
	orderStore *orders.Store
	tenants    *tenant.Store
	fromEmail  string
}

// NewProcessor creates a notifier processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, cfg ProcessorConfig) *Processor {
	return &Processor{
		ses:        clients.SES,
		orderStore: orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.OrdersIndexTable, cfg.CustomersTable, cfg.CouponsTable),
		tenants:    tenant.NewStore(clients.DynamoDB, cfg.TenantConfigTable, cfg.DeliveryTable),
		fromEmail:  cfg.FromEmail,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		p.processMessage(ctx, rec)
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) {
	var job aws.NotificationJob
	if err := json.Unmarshal([]byte(rec.Body), &job); err != nil {
		log.Printf("[notifier] invalid message body: %v, body: %s", err, rec.Body)
		return
	}

	log.Printf("[notifier] received tenant=%s order=%s status=%s corr=%s",
		job.TenantID, job.OrderID, job.Status, job.CorrelationID)

	order, err := p.orderStore.Get(ctx, job.TenantID, job.OrderID)
	if err != nil {
		log.Printf("[notifier] failed to fetch order %s: %v", job.OrderID, err)
		return
	}
	if order == nil {
		log.Printf("[notifier] order not found: %s", job.OrderID)
		return
	}

	cfg, err := p.tenants.GetConfig(ctx, job.TenantID)
	if err != nil {
		log.Printf("[notifier] failed to fetch tenant config %s: %v", job.TenantID, err)
		return
	}

	// render for the status the job carries, not the order's current status:
	// the order may have moved on since the job was published
	rendered := *order
	rendered.Status = job.Status

	tmpl := notify.ResolveTemplate(cfg, job.Status)
	vars := notify.Vars(&rendered, cfg.SiteName)
	subject, body := notify.Render(tmpl, vars)
	customerTo, internalTo := notify.Recipients(tmpl, &rendered, cfg)

	from := cfg.FromEmail
	if from == "" {
		from = p.fromEmail
	}

	if len(customerTo) > 0 {
		if err := p.send(ctx, from, customerTo, subject, body); err != nil {
			log.Printf("[notifier] customer send failed order=%s: %v", job.OrderID, err)
		}
	}
	if len(internalTo) > 0 {
		internalBody := body + notify.InternalAppendix(&rendered)
		if err := p.send(ctx, from, internalTo, subject, internalBody); err != nil {
			log.Printf("[notifier] internal send failed order=%s: %v", job.OrderID, err)
		}
	}
}

func (p *Processor) send(ctx context.Context, from string, to []string, subject, body string) error {
	_, err := p.ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination:      &sestypes.Destination{ToAddresses: to},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: &subject},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: &body},
				},
			},
		},
	})
	return err
}
