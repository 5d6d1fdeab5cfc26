package audit

import (
	"context"

	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
)

// LogSink writes events to the structured log.
type LogSink struct {
	log logging.Logger
}

func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log.With("module", "audit")}
}

func (s *LogSink) Record(ctx context.Context, e Event) error {
	args := []any{
		"event_id", e.ID,
		"operation", e.Operation,
		"outcome", e.Outcome,
	}
	if e.Kind != "" {
		args = append(args, "kind", e.Kind)
	}
	if e.Username != "" {
		args = append(args, "username", e.Username)
	}
	if e.PayerRef != "" {
		args = append(args, "payer_ref", e.PayerRef)
	}
	if e.Package != "" {
		args = append(args, "package", e.Package)
	}
	if e.Expiry != "" {
		args = append(args, "expiry", e.Expiry)
	}
	if len(e.Mismatches) > 0 {
		args = append(args, "mismatches", e.Mismatches)
	}

	switch e.Outcome {
	case OutcomeFailure:
		s.log.Error(ctx, e.Message, args...)
	case OutcomeWarning:
		s.log.Warn(ctx, e.Message, args...)
	default:
		s.log.Info(ctx, e.Message, args...)
	}
	return nil
}
