package provision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/hotspotkeeper/internal/audit"
	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/lease"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
)

// fakeDevice is an in-memory router.
type fakeDevice struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*device.Account
	jobs     map[string]device.ExpiryJobSpec
	sessions []device.ActiveSession

	calls    []string
	connects int
	closes   int

	connectErr error
	// failures queues per-operation results; a nil entry lets the call
	// through. always fails every call of an operation.
	failures map[string][]error
	always   map[string]error
	panicOn  string

	// breakSessions kills a session after it returns a connectivity error,
	// like a real connection whose protocol state is unknown.
	breakSessions bool
	// jobLands makes UpsertExpiryJob install the job even when it fails.
	jobLands bool

	// keepDisabled makes SetAccount ignore the disabled flag.
	keepDisabled bool
	setHook      func(name string)
	inSet        int
	maxInSet     int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		accounts: map[string]*device.Account{},
		jobs:     map[string]device.ExpiryJobSpec{},
		failures: map[string][]error{},
		always:   map[string]error{},
	}
}

func (f *fakeDevice) addAccount(a device.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	a.ID = fmt.Sprintf("*%d", f.seq)
	f.accounts[a.Name] = &a
}

func (f *fakeDevice) account(name string) *device.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[name]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (f *fakeDevice) job(username string) (device.ExpiryJobSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[username]
	return j, ok
}

func (f *fakeDevice) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeDevice) mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		switch c {
		case "FindAccount", "ListActiveSessions":
		default:
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeDevice) counts() (connects, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.closes
}

// enter records op and returns its injected failure.
func (f *fakeDevice) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.panicOn == op {
		panic("fake device exploded in " + op)
	}
	if err := f.always[op]; err != nil {
		return err
	}
	if q := f.failures[op]; len(q) > 0 {
		f.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeDevice) Connect(ctx context.Context) (device.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connects++
	return &fakeSession{f: f}, nil
}

type fakeSession struct {
	f    *fakeDevice
	dead bool
}

func (s *fakeSession) enter(op string) error {
	if s.dead {
		s.f.mu.Lock()
		s.f.calls = append(s.f.calls, op)
		s.f.mu.Unlock()
		return fmt.Errorf("%w: %s: connection closed", device.ErrConnectivity, op)
	}
	err := s.f.enter(op)
	if err != nil && s.f.breakSessions && errors.Is(err, device.ErrConnectivity) {
		s.dead = true
	}
	return err
}

func (s *fakeSession) FindAccount(ctx context.Context, name string) (*device.Account, error) {
	if err := s.enter("FindAccount"); err != nil {
		return nil, err
	}
	return s.f.account(name), nil
}

func (s *fakeSession) SetAccount(ctx context.Context, id string, upd device.AccountUpdate) error {
	if err := s.enter("SetAccount"); err != nil {
		return err
	}

	var name string
	s.f.mu.Lock()
	for n, a := range s.f.accounts {
		if a.ID == id {
			name = n
		}
	}
	s.f.inSet++
	if s.f.inSet > s.f.maxInSet {
		s.f.maxInSet = s.f.inSet
	}
	hook := s.f.setHook
	s.f.mu.Unlock()

	if hook != nil {
		hook(name)
	}

	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.inSet--
	a, ok := s.f.accounts[name]
	if !ok {
		return fmt.Errorf("%w: no such item", device.ErrRejected)
	}
	if upd.Disabled != "" && !s.f.keepDisabled {
		a.Disabled = upd.Disabled
	}
	if upd.Comment != "" {
		a.Comment = upd.Comment
	}
	return nil
}

func (s *fakeSession) CreateAccount(ctx context.Context, spec device.AccountSpec) (*device.Account, error) {
	if err := s.enter("CreateAccount"); err != nil {
		return nil, err
	}
	s.f.addAccount(device.Account{
		Name: spec.Name, Credential: spec.Credential, Profile: spec.Profile,
		Disabled: spec.Disabled, Comment: spec.Comment,
	})
	return s.f.account(spec.Name), nil
}

func (s *fakeSession) RemoveAccount(ctx context.Context, name string) error {
	if err := s.enter("RemoveAccount"); err != nil {
		return err
	}
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.accounts, name)
	return nil
}

func (s *fakeSession) UpsertExpiryJob(ctx context.Context, spec device.ExpiryJobSpec) (device.JobHandle, error) {
	if err := s.enter("UpsertExpiryJob"); err != nil {
		if s.f.jobLands {
			s.f.mu.Lock()
			s.f.jobs[spec.Username] = spec
			s.f.mu.Unlock()
		}
		return device.JobHandle{}, err
	}
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.seq++
	s.f.jobs[spec.Username] = spec
	return device.JobHandle{
		ScriptName:    device.ScriptName(spec.Username),
		SchedulerName: device.SchedulerName(spec.Username),
		SchedulerID:   fmt.Sprintf("*S%d", s.f.seq),
	}, nil
}

func (s *fakeSession) RemoveExpiryJob(ctx context.Context, username string) error {
	if err := s.enter("RemoveExpiryJob"); err != nil {
		return err
	}
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.jobs, username)
	return nil
}

func (s *fakeSession) ListActiveSessions(ctx context.Context) ([]device.ActiveSession, error) {
	if err := s.enter("ListActiveSessions"); err != nil {
		return nil, err
	}
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return append([]device.ActiveSession(nil), s.f.sessions...), nil
}

func (s *fakeSession) RemoveActiveSession(ctx context.Context, id string) error {
	if err := s.enter("RemoveActiveSession"); err != nil {
		return err
	}
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	for i, a := range s.f.sessions {
		if a.ID == id {
			s.f.sessions = append(s.f.sessions[:i:i], s.f.sessions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: no such item", device.ErrRejected)
}

func (s *fakeSession) Close() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.closes++
	return nil
}

// memRepo is an in-memory pending.Repository.
type memRepo struct {
	mu        sync.Mutex
	items     map[string]pending.Request
	getErr    error
	deleteErr error
	listErr   error
	deletes   int
}

func newMemRepo(reqs ...pending.Request) *memRepo {
	r := &memRepo{items: map[string]pending.Request{}}
	for _, req := range reqs {
		r.items[req.Username] = req
	}
	return r
}

func (r *memRepo) Get(ctx context.Context, username string) (*pending.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if err := pending.ValidateUsername(username); err != nil {
		return nil, err
	}
	req, ok := r.items[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &req, nil
}

func (r *memRepo) Save(ctx context.Context, req *pending.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[req.Username] = *req
	return nil
}

func (r *memRepo) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.items, username)
	return nil
}

func (r *memRepo) List(ctx context.Context) ([]pending.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]pending.Request, 0, len(r.items))
	for _, req := range r.items {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *memRepo) has(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[username]
	return ok
}

// fixture wires a typical purchase: user4821 bought
// seven days and waits, disabled, for approval.
type fixture struct {
	dev    *fakeDevice
	repo   *memRepo
	sink   *audit.MemorySink
	engine *Engine
}

var refTime = time.Date(2025, time.June, 23, 13, 0, 0, 0, time.UTC)

func examplePending() pending.Request {
	return pending.Request{Username: "user4821", Credential: "583920", Address: "10.0.0.5", Package: "7_days"}
}

func exampleAccount() device.Account {
	return device.Account{Name: "user4821", Credential: "583920", Profile: "7_days", Disabled: "true"}
}

func exampleDecision() Decision {
	return Decision{PayerRef: "01712345678", Username: "user4821", Address: "10.0.0.5", Package: "7_days"}
}

func newFixture() *fixture {
	dev := newFakeDevice()
	dev.addAccount(exampleAccount())
	repo := newMemRepo(examplePending())
	sink := audit.NewMemorySink()
	engine := NewEngine(repo, dev, Options{
		Clock:    lease.Fixed(refTime),
		Location: time.UTC,
		Sink:     sink,
	})
	return &fixture{dev: dev, repo: repo, sink: sink, engine: engine}
}
