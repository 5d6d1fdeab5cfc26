// Package audit records the terminal outcome of every provisioning decision
// and self-check. A sink only stores events; it never answers queries.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Operations.
const (
	OpApprove   = "approve"
	OpReject    = "reject"
	OpSelfCheck = "self_check"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeWarning = "warning"
	OutcomeFailure = "failure"
)

// Event is one terminal outcome. Credentials never appear in events.
type Event struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Operation  string    `json:"operation"`
	Outcome    string    `json:"outcome"`
	Kind       string    `json:"kind,omitempty"`
	Username   string    `json:"username,omitempty"`
	PayerRef   string    `json:"payer_ref,omitempty"`
	Address    string    `json:"address,omitempty"`
	Package    string    `json:"package,omitempty"`
	Expiry     string    `json:"expiry,omitempty"`
	Message    string    `json:"message,omitempty"`
	Mismatches []string  `json:"mismatches,omitempty"`
}

// NewEvent stamps a fresh id and time on an event for op.
func NewEvent(op string, now time.Time) Event {
	return Event{ID: uuid.NewString(), Time: now.UTC(), Operation: op}
}

// Sink stores events.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
