package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hotspotkeeper/internal/audit"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/lease"
	"github.com/dmitrijs2005/hotspotkeeper/internal/locker"
	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
)

// Options tunes an Engine. Zero values select the defaults noted per field.
type Options struct {
	// Clock supplies "now" for new leases. Default lease.Real().
	Clock lease.Clock
	// Location is the router's wall-clock zone. Default time.Local.
	Location *time.Location
	// Encoding interprets the account disabled flag. Default
	// device.DefaultEncoding().
	Encoding *device.Encoding
	// Locker serialises workflows per username. Default in-process.
	Locker locker.Locker
	// Sink receives one event per terminal outcome. Default: none.
	Sink   audit.Sink
	Logger logging.Logger
}

// Engine runs approval and rejection workflows and read-only queries
// against a device and a pending-request store.
type Engine struct {
	pending pending.Repository
	gateway device.Gateway
	clock   lease.Clock
	loc     *time.Location
	enc     device.Encoding
	locker  locker.Locker
	sink    audit.Sink
	log     logging.Logger
}

func NewEngine(repo pending.Repository, gw device.Gateway, opts Options) *Engine {
	e := &Engine{
		pending: repo,
		gateway: gw,
		clock:   opts.Clock,
		loc:     opts.Location,
		locker:  opts.Locker,
		sink:    opts.Sink,
		log:     opts.Logger,
	}
	if e.clock == nil {
		e.clock = lease.Real()
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if opts.Encoding != nil {
		e.enc = *opts.Encoding
	} else {
		e.enc = device.DefaultEncoding()
	}
	if e.locker == nil {
		e.locker = locker.NewMemoryLocker()
	}
	if e.sink == nil {
		e.sink = audit.MultiSink{}
	}
	if e.log == nil {
		e.log = logging.NewNopLogger()
	}
	e.log = e.log.With("module", "provision")
	return e
}

// exclusive runs fn while holding the lock for username. A panic inside fn
// becomes an InternalError so one broken workflow cannot take the process
// down.
func exclusive[T any](ctx context.Context, e *Engine, username string, fn func(ctx context.Context) (T, error)) (res T, err error) {
	unlock, lerr := e.locker.Lock(ctx, username)
	if lerr != nil {
		return res, newError(KindInternal, username, fmt.Errorf("acquire lock: %w", lerr))
	}
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			var zero T
			res = zero
			err = newError(KindInternal, username, fmt.Errorf("panic: %v", r))
			e.log.Error(ctx, "workflow panicked", "username", username, "panic", r)
		}
	}()

	return fn(ctx)
}

// connect opens a device session. Callers must close it.
func (e *Engine) connect(ctx context.Context, username string) (device.Session, error) {
	s, err := e.gateway.Connect(ctx)
	if err != nil {
		return nil, deviceError(username, err)
	}
	return s, nil
}

func (e *Engine) closeSession(ctx context.Context, s device.Session) {
	if err := s.Close(); err != nil {
		e.log.Warn(ctx, "device session close failed", "error", err)
	}
}

func (e *Engine) record(ctx context.Context, ev audit.Event) {
	if err := e.sink.Record(ctx, ev); err != nil {
		e.log.Error(ctx, "audit record failed", "event_id", ev.ID, "operation", ev.Operation, "error", err)
	}
}

func (e *Engine) now() time.Time {
	return e.clock.Now().In(e.loc)
}

// SelfCheck opens and closes one device session.
func (e *Engine) SelfCheck(ctx context.Context) error {
	s, err := e.connect(ctx, "")
	if err != nil {
		return err
	}
	e.closeSession(ctx, s)
	return nil
}

// ReportSelfCheck runs SelfCheck and records its outcome as an audit event.
func (e *Engine) ReportSelfCheck(ctx context.Context) error {
	err := e.SelfCheck(ctx)

	ev := audit.NewEvent(audit.OpSelfCheck, e.clock.Now())
	if err != nil {
		ev.Outcome = audit.OutcomeFailure
		ev.Kind = string(KindOf(err))
		e.log.Error(ctx, "router unreachable", "error", err)
	} else {
		ev.Outcome = audit.OutcomeSuccess
		e.log.Info(ctx, "router reachable")
	}
	ev.Message = SelfCheckMessage(err)
	e.record(ctx, ev)
	return err
}

// Pending lists the requests awaiting a decision.
func (e *Engine) Pending(ctx context.Context) ([]pending.Request, error) {
	list, err := e.pending.List(ctx)
	if err != nil {
		return nil, newError(KindInternal, "", err)
	}
	return list, nil
}
