package idempotency

import "time"

// Record statuses
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Record tracks one placement attempt under a client-chosen key so retried
// submissions replay the original response instead of placing twice.
type Record struct {
	TenantID       string    `dynamodbav:"tenant_id"`       // PK
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // SK
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"` // small JSON bodies only
	ResponseStatus int       `dynamodbav:"response_status,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}
