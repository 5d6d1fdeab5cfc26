package provision

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/hotspotkeeper/internal/audit"
)

// Reject removes the device account of d.Username, if any, and deletes the
// pending request.
//
// Failing to reach the device or to look the account up leaves everything
// untouched. When exactly one of the removal and the deletion fails, the
// result is returned together with a PartialRejection error.
func (e *Engine) Reject(ctx context.Context, d Decision) (*RejectionResult, error) {
	res, err := exclusive(ctx, e, d.Username, func(ctx context.Context) (*RejectionResult, error) {
		return e.reject(ctx, d)
	})
	e.recordRejection(ctx, d, res, err)
	return res, err
}

func (e *Engine) reject(ctx context.Context, d Decision) (*RejectionResult, error) {
	log := e.log.With("op", audit.OpReject, "username", d.Username)

	req, err := e.load(ctx, d.Username)
	if err != nil {
		return nil, err
	}

	session, err := e.connect(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	defer e.closeSession(ctx, session)

	acc, err := session.FindAccount(ctx, req.Username)
	if err != nil {
		return nil, deviceError(req.Username, err)
	}

	res := &RejectionResult{
		Username: req.Username,
		Address:  req.Address,
		Package:  req.Package,
	}

	var removeErr error
	if acc != nil {
		removeErr = session.RemoveAccount(ctx, req.Username)
		if removeErr == nil {
			res.AccountRemoved = true
			// a job can only be left over from an interrupted approval
			if err := session.RemoveExpiryJob(ctx, req.Username); err != nil {
				log.Warn(ctx, "stale expiry job not removed", "error", err)
			}
		}
	}

	deleteErr := e.pending.Delete(ctx, req.Username)
	res.RequestDeleted = deleteErr == nil

	switch {
	case removeErr != nil && deleteErr != nil:
		return nil, deviceError(req.Username, errors.Join(removeErr, deleteErr))
	case removeErr != nil:
		log.Warn(ctx, "pending request deleted but device account kept", "error", removeErr)
		return res, newError(KindPartialRejection, req.Username, removeErr)
	case deleteErr != nil:
		log.Warn(ctx, "device account removed but pending request kept", "error", deleteErr)
		return res, newError(KindPartialRejection, req.Username, deleteErr)
	}

	log.Info(ctx, "request rejected", "account_removed", res.AccountRemoved)
	return res, nil
}

func (e *Engine) recordRejection(ctx context.Context, d Decision, res *RejectionResult, err error) {
	ev := audit.NewEvent(audit.OpReject, e.clock.Now())
	ev.Username = d.Username
	ev.PayerRef = d.PayerRef
	ev.Address = d.Address
	ev.Package = d.Package

	switch {
	case err != nil && res != nil:
		ev.Outcome = audit.OutcomeWarning
		ev.Kind = string(KindOf(err))
		ev.Message = Message(err)
	case err != nil:
		ev.Outcome = audit.OutcomeFailure
		ev.Kind = string(KindOf(err))
		ev.Mismatches = mismatchStrings(err)
		ev.Message = Message(err)
	default:
		ev.Outcome = audit.OutcomeSuccess
		ev.Message = "request rejected"
	}
	e.record(ctx, ev)
}
