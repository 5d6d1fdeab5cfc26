package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hotspotkeeper/internal/audit"
	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/lease"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
)

// Approve enables the prepared account of d.Username and schedules its
// removal at the end of the purchased lease.
//
// The decision must match the pending request, and the device account must
// be disabled with the request's credential and profile; otherwise nothing
// is mutated. Once the account is live the pending request is deleted. If
// that deletion fails the result is still returned, with Warning set, and
// the error is nil.
func (e *Engine) Approve(ctx context.Context, d Decision) (*ApprovalResult, error) {
	res, err := exclusive(ctx, e, d.Username, func(ctx context.Context) (*ApprovalResult, error) {
		return e.approve(ctx, d)
	})
	e.recordApproval(ctx, d, res, err)
	return res, err
}

func (e *Engine) approve(ctx context.Context, d Decision) (*ApprovalResult, error) {
	log := e.log.With("op", audit.OpApprove, "username", d.Username)

	// 1. load
	req, err := e.load(ctx, d.Username)
	if err != nil {
		return nil, err
	}

	// 2. validate decision against the record
	if mm := decisionMismatches(d, req); len(mm) > 0 {
		return nil, &Error{Kind: KindDataIntegrity, Username: d.Username, Mismatches: mm}
	}

	// 3. fetch account
	session, err := e.connect(ctx, d.Username)
	if err != nil {
		return nil, err
	}
	defer e.closeSession(ctx, session)

	acc, err := session.FindAccount(ctx, req.Username)
	if err != nil {
		return nil, deviceError(req.Username, err)
	}
	if acc == nil {
		return nil, newError(KindDeviceAccountMissing, req.Username, nil)
	}

	// 4. preconditions
	if !e.enc.IsDisabled(acc.Disabled) {
		return nil, &Error{
			Kind:       KindAlreadyActive,
			Username:   req.Username,
			Mismatches: []Mismatch{{Field: "disabled", Expected: strings.Join(e.enc.Disabled, "|"), Actual: acc.Disabled}},
		}
	}
	if mm := accountMismatches(req, acc); len(mm) > 0 {
		return nil, &Error{Kind: KindDeviceDataMismatch, Username: req.Username, Mismatches: mm}
	}

	// 5. expiry
	exp, known := lease.Compute(req.Package, e.now())
	if !known {
		log.Warn(ctx, "unknown package, using one day", "package", req.Package)
	}

	res := &ApprovalResult{
		Username:       req.Username,
		Credential:     req.Credential,
		Address:        req.Address,
		Package:        req.Package,
		PackageKnown:   known,
		ExpiresAt:      exp.At,
		DisplayExpiry:  exp.Display,
		DeviceSchedule: exp.DeviceSchedule,
	}

	// 6-8. mutate the device
	var job device.JobHandle
	s := &saga{log: log, steps: []step{
		{
			name: "install expiry job",
			kind: KindSchedulingFailed,
			action: func(ctx context.Context) error {
				var err error
				job, err = session.UpsertExpiryJob(ctx, device.ExpiryJobSpec{
					Username:   req.Username,
					ScriptBody: device.RemovalScript(req.Username),
					StartDate:  exp.ScheduleDate(),
					StartTime:  exp.ScheduleTime(),
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				return e.removeJob(ctx, session, req.Username)
			},
			// a timed-out add may still have landed
			undoOnFailure: true,
		},
		{
			name: "enable account",
			kind: KindActivationFailed,
			action: func(ctx context.Context) error {
				res.JobID = job.SchedulerID
				res.Comment = AccountComment(d.PayerRef, exp.Display, job.SchedulerID)
				return session.SetAccount(ctx, acc.ID, device.AccountUpdate{
					Disabled: e.enc.EnableValue(),
					Comment:  res.Comment,
				})
			},
		},
		{
			name: "verify activation",
			kind: KindVerificationFailed,
			action: func(ctx context.Context) error {
				after, err := session.FindAccount(ctx, req.Username)
				if err != nil {
					return err
				}
				if after == nil {
					return errors.New("account vanished after enable")
				}
				if !e.enc.IsEnabled(after.Disabled) {
					return fmt.Errorf("account reads disabled=%q after enable", after.Disabled)
				}
				return nil
			},
		},
	}}
	if failed, err := s.run(ctx); err != nil {
		return nil, newError(failed.kind, req.Username, err)
	}

	log.Info(ctx, "account enabled", "expires", exp.Display, "job_id", job.SchedulerID, "package", req.Package)

	// 9. commit
	if err := e.pending.Delete(ctx, req.Username); err != nil {
		res.Warning = newError(KindCommitWarning, req.Username, err)
		log.Warn(ctx, "pending request left behind after approval", "error", err)
	}
	return res, nil
}

// removeJob removes the expiry job of username, retrying once on a fresh
// session when the current one has lost its connection.
func (e *Engine) removeJob(ctx context.Context, session device.Session, username string) error {
	err := session.RemoveExpiryJob(ctx, username)
	if err == nil || !errors.Is(err, device.ErrConnectivity) {
		return err
	}

	fresh, cerr := e.gateway.Connect(ctx)
	if cerr != nil {
		return errors.Join(err, cerr)
	}
	defer e.closeSession(ctx, fresh)
	return fresh.RemoveExpiryJob(ctx, username)
}

// AccountComment is the note written on an enabled account.
func AccountComment(payerRef, displayExpiry, jobID string) string {
	return fmt.Sprintf("%s | %s | scheduler=%s", payerRef, displayExpiry, jobID)
}

func (e *Engine) load(ctx context.Context, username string) (*pending.Request, error) {
	req, err := e.pending.Get(ctx, username)
	switch {
	case err == nil:
		return req, nil
	case errors.Is(err, common.ErrorNotFound):
		return nil, newError(KindNotFound, username, err)
	case errors.Is(err, common.ErrorValidation):
		return nil, &Error{
			Kind:       KindDataIntegrity,
			Username:   username,
			Mismatches: []Mismatch{{Field: "username", Expected: "a valid username", Actual: username}},
			Err:        err,
		}
	}
	return nil, newError(KindInternal, username, fmt.Errorf("load pending request: %w", err))
}

func decisionMismatches(d Decision, req *pending.Request) []Mismatch {
	var mm []Mismatch
	if d.Username != req.Username {
		mm = append(mm, Mismatch{Field: "username", Expected: req.Username, Actual: d.Username})
	}
	if d.Address != req.Address {
		mm = append(mm, Mismatch{Field: "address", Expected: req.Address, Actual: d.Address})
	}
	if !lease.SamePackage(d.Package, req.Package) {
		mm = append(mm, Mismatch{Field: "package", Expected: req.Package, Actual: d.Package})
	}
	return mm
}

func accountMismatches(req *pending.Request, acc *device.Account) []Mismatch {
	var mm []Mismatch
	if acc.Credential != req.Credential {
		mm = append(mm, Mismatch{Field: "credential", Expected: redacted, Actual: redacted})
	}
	if !strings.EqualFold(acc.Profile, req.Package) {
		mm = append(mm, Mismatch{Field: "profile", Expected: req.Package, Actual: acc.Profile})
	}
	return mm
}

func (e *Engine) recordApproval(ctx context.Context, d Decision, res *ApprovalResult, err error) {
	ev := audit.NewEvent(audit.OpApprove, e.clock.Now())
	ev.Username = d.Username
	ev.PayerRef = d.PayerRef
	ev.Address = d.Address
	ev.Package = d.Package

	switch {
	case err != nil:
		ev.Outcome = audit.OutcomeFailure
		ev.Kind = string(KindOf(err))
		ev.Mismatches = mismatchStrings(err)
		ev.Message = Message(err)
	case res.Warning != nil:
		ev.Outcome = audit.OutcomeWarning
		ev.Kind = string(KindCommitWarning)
		ev.Expiry = res.DisplayExpiry
		ev.Message = Message(res.Warning)
	default:
		ev.Outcome = audit.OutcomeSuccess
		ev.Expiry = res.DisplayExpiry
		ev.Message = "account approved"
	}
	e.record(ctx, ev)
}

func mismatchStrings(err error) []string {
	var pe *Error
	if !errors.As(err, &pe) {
		return nil
	}
	out := make([]string, 0, len(pe.Mismatches))
	for _, m := range pe.Mismatches {
		out = append(out, m.String())
	}
	return out
}
