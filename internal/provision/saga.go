package provision

import (
	"context"

	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
)

// step is one forward action of a saga and the action that undoes it.
// compensate may be nil when there is nothing to undo. undoOnFailure runs
// compensate for the step's own failure too, for actions whose effects may
// have landed on the device even though the call reported an error.
type step struct {
	name          string
	kind          Kind
	action        func(ctx context.Context) error
	compensate    func(ctx context.Context) error
	undoOnFailure bool
}

// saga runs steps strictly in order. When a step fails, the compensations of
// the steps that already succeeded run in reverse order, starting with the
// failing step itself when it is marked undoOnFailure. The failing step is
// returned with its error. Compensation errors are logged only.
type saga struct {
	steps []step
	log   logging.Logger
}

func (s *saga) run(ctx context.Context) (*step, error) {
	for i := range s.steps {
		st := &s.steps[i]
		if err := st.action(ctx); err != nil {
			s.rollback(ctx, i)
			return st, err
		}
	}
	return nil, nil
}

func (s *saga) rollback(ctx context.Context, failed int) {
	// compensations must run even when the caller has given up
	ctx = context.WithoutCancel(ctx)
	from := failed - 1
	if s.steps[failed].undoOnFailure {
		from = failed
	}
	for i := from; i >= 0; i-- {
		st := s.steps[i]
		if st.compensate == nil {
			continue
		}
		if err := st.compensate(ctx); err != nil {
			s.log.Error(ctx, "compensation failed", "step", st.name, "failed_step", s.steps[failed].name, "error", err)
			continue
		}
		s.log.Info(ctx, "compensation applied", "step", st.name, "failed_step", s.steps[failed].name)
	}
}
