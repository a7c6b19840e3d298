package payments

import (
	"time"

	"gorm.io/datatypes"
)

// ProviderEvent is the audit row for every verified webhook delivery.
// unique(provider,event_id) makes exact redeliveries cheap to detect.
type ProviderEvent struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	Provider     string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID      string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType    string         `gorm:"type:varchar(64);not null"`
	AccountLabel string         `gorm:"type:varchar(64);not null"`
	PayloadJSON  datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time `gorm:"not null"`
	ProcessedAt  *time.Time
	ProcessError *string `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

// Outcome is the explicit terminal state of one reconciliation attempt.
type Outcome string

const (
	// OutcomeIgnored: event type this pipeline does not act on.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeNoSession: no usable session reference; acknowledged and
	// dropped so the processor does not keep retrying.
	OutcomeNoSession Outcome = "no_session"
	// OutcomeAlreadyProcessed: the idempotency gate short-circuited.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeOrderCreated: full success, order exists upstream.
	OutcomeOrderCreated Outcome = "order_created"
	// OutcomeOrderFailedPaid: payment captured but order creation failed;
	// degraded state persisted for manual reconciliation.
	OutcomeOrderFailedPaid Outcome = "order_failed_paid"
)

// ReconcileResult is what the webhook handler turns into the HTTP
// acknowledgment. Only verification failures ever map to non-2xx.
type ReconcileResult struct {
	Outcome     Outcome
	SessionID   string
	OrderID     int64
	OrderNumber int64
	Detail      string
}
