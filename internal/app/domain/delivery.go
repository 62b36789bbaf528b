package domain

import (
	"strings"
	"time"
)

// WebhookRegistration is a callback endpoint and the event types it wants.
type WebhookRegistration struct {
	ID         int64    `json:"id"`
	URL        string   `json:"url"`
	EventTypes []string `json:"eventTypes"`
	Token      string   `json:"-"`
	Secret     string   `json:"-"`
}

// Matches reports whether the registration subscribes to eventType. An empty filter matches everything.
func (r WebhookRegistration) Matches(eventType string) bool {
	if len(r.EventTypes) == 0 {
		return true
	}
	for _, candidate := range r.EventTypes {
		if strings.EqualFold(strings.TrimSpace(candidate), eventType) {
			return true
		}
	}
	return false
}

// DeliveryAttempt is one outcome bound for one registered endpoint.
type DeliveryAttempt struct {
	RegistrationID  int64     `json:"registrationId"`
	RegistrationURL string    `json:"registrationUrl"`
	Outcome         TxOutcome `json:"outcome"`
	AttemptNumber   int       `json:"-"`
	NextRetryAt     time.Time `json:"-"`
}

// DeliveryState is the recorded result of a delivery attempt.
type DeliveryState string

const (
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryRetrying  DeliveryState = "retrying"
	DeliveryFailed    DeliveryState = "failed"
)

// DeliveryRecord is one row of the delivery log.
type DeliveryRecord struct {
	DeliveryID      string
	RegistrationURL string
	ReferenceID     string
	TxHash          string
	Attempt         int
	State           DeliveryState
	StatusCode      int
	Error           string
	RecordedAt      time.Time
}
