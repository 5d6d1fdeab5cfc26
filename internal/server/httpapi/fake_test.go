package httpapi

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
)

type fakeEngine struct {
	mu        sync.Mutex
	decisions []provision.Decision
	actions   []string

	approveRes *provision.ApprovalResult
	approveErr error
	rejectRes  *provision.RejectionResult
	rejectErr  error
	sessions   provision.Sessions
	usage      *provision.UsageResult
	pending    []pending.Request
	status     *provision.PortalStatus
	removed    bool
	err        error
}

func (f *fakeEngine) note(action string, d provision.Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	f.decisions = append(f.decisions, d)
}

func (f *fakeEngine) Approve(ctx context.Context, d provision.Decision) (*provision.ApprovalResult, error) {
	f.note(ActionApprove, d)
	return f.approveRes, f.approveErr
}

func (f *fakeEngine) Reject(ctx context.Context, d provision.Decision) (*provision.RejectionResult, error) {
	f.note(ActionReject, d)
	return f.rejectRes, f.rejectErr
}

func (f *fakeEngine) ActiveSessions(ctx context.Context) (provision.Sessions, error) {
	return f.sessions, f.err
}

func (f *fakeEngine) Usage(ctx context.Context, username string) (*provision.UsageResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.usage != nil {
		return f.usage, nil
	}
	return &provision.UsageResult{Username: username}, nil
}

func (f *fakeEngine) Pending(ctx context.Context) ([]pending.Request, error) {
	return f.pending, f.err
}

func (f *fakeEngine) PortalStatus(ctx context.Context, username, credential string) (*provision.PortalStatus, error) {
	return f.status, f.err
}

func (f *fakeEngine) Disconnect(ctx context.Context, username, credential string) (bool, error) {
	return f.removed, f.err
}
