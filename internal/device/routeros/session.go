package routeros

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ros "github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
)

const (
	userPath      = "/ip/hotspot/user"
	activePath    = "/ip/hotspot/active"
	scriptPath    = "/system/script"
	schedulerPath = "/system/scheduler"
)

// Session is a device.Session over one API connection.
type Session struct {
	r       runner
	closeFn func() error
	timeout time.Duration
	log     logging.Logger

	mu     sync.Mutex
	broken bool
	closed bool
}

var _ device.Session = (*Session)(nil)

// run executes one command within the call timeout.
func (s *Session) run(ctx context.Context, words ...string) (*ros.Reply, error) {
	s.mu.Lock()
	broken := s.broken || s.closed
	s.mu.Unlock()
	if broken {
		return nil, fmt.Errorf("%w: %s: connection closed", device.ErrConnectivity, words[0])
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		reply *ros.Reply
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		reply, err := s.r.RunArgs(words)
		ch <- result{reply, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, s.classify(words[0], res.err)
		}
		return res.reply, nil
	case <-callCtx.Done():
		s.markBroken()
		return nil, fmt.Errorf("%w: %s: %w", device.ErrConnectivity, words[0], callCtx.Err())
	}
}

func (s *Session) classify(cmd string, err error) error {
	var devErr *ros.DeviceError
	if errors.As(err, &devErr) {
		return fmt.Errorf("%w: %s: %w", device.ErrRejected, cmd, err)
	}
	s.markBroken()
	return fmt.Errorf("%w: %s: %w", device.ErrConnectivity, cmd, err)
}

// markBroken closes a connection whose protocol state is unknown.
func (s *Session) markBroken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken || s.closed {
		return
	}
	s.broken = true
	if s.closeFn != nil {
		_ = s.closeFn()
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.broken || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func (s *Session) print(ctx context.Context, path string, query ...string) ([]map[string]string, error) {
	words := append([]string{path + "/print"}, query...)
	reply, err := s.run(ctx, words...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(reply.Re))
	for _, re := range reply.Re {
		out = append(out, sentenceMap(re))
	}
	return out, nil
}

func sentenceMap(s *proto.Sentence) map[string]string {
	if s == nil || s.Map == nil {
		return map[string]string{}
	}
	return s.Map
}

func (s *Session) idsByName(ctx context.Context, path, name string) ([]string, error) {
	rows, err := s.print(ctx, path, "?name="+name)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := row[".id"]; id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Session) removeByName(ctx context.Context, path, name string) error {
	ids, err := s.idsByName(ctx, path, name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.run(ctx, path+"/remove", "=.id="+id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) FindAccount(ctx context.Context, name string) (*device.Account, error) {
	rows, err := s.print(ctx, userPath, "?name="+name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &device.Account{
		ID:          row[".id"],
		Name:        row["name"],
		Credential:  row["password"],
		Profile:     row["profile"],
		Disabled:    row["disabled"],
		Comment:     row["comment"],
		LimitUptime: row["limit-uptime"],
	}, nil
}

func (s *Session) SetAccount(ctx context.Context, id string, upd device.AccountUpdate) error {
	words := []string{userPath + "/set", "=.id=" + id}
	if upd.Disabled != "" {
		words = append(words, "=disabled="+upd.Disabled)
	}
	if upd.Comment != "" {
		words = append(words, "=comment="+upd.Comment)
	}
	_, err := s.run(ctx, words...)
	return err
}

func (s *Session) CreateAccount(ctx context.Context, spec device.AccountSpec) (*device.Account, error) {
	words := []string{
		userPath + "/add",
		"=name=" + spec.Name,
		"=password=" + spec.Credential,
	}
	if spec.Profile != "" {
		words = append(words, "=profile="+spec.Profile)
	}
	if spec.Disabled != "" {
		words = append(words, "=disabled="+spec.Disabled)
	}
	if spec.Comment != "" {
		words = append(words, "=comment="+spec.Comment)
	}
	if _, err := s.run(ctx, words...); err != nil {
		return nil, err
	}

	acc, err := s.FindAccount(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: account %s missing after add", device.ErrRejected, spec.Name)
	}
	return acc, nil
}

func (s *Session) RemoveAccount(ctx context.Context, name string) error {
	return s.removeByName(ctx, userPath, name)
}

func (s *Session) UpsertExpiryJob(ctx context.Context, spec device.ExpiryJobSpec) (device.JobHandle, error) {
	h := device.JobHandle{
		ScriptName:    device.ScriptName(spec.Username),
		SchedulerName: device.SchedulerName(spec.Username),
	}

	if err := s.RemoveExpiryJob(ctx, spec.Username); err != nil {
		return device.JobHandle{}, fmt.Errorf("clear stale job: %w", err)
	}

	_, err := s.run(ctx,
		scriptPath+"/add",
		"=name="+h.ScriptName,
		"=source="+spec.ScriptBody,
		"=policy=read,write",
		"=dont-require-permissions=yes",
	)
	if err != nil {
		return device.JobHandle{}, fmt.Errorf("add script: %w", err)
	}

	reply, err := s.run(ctx,
		schedulerPath+"/add",
		"=name="+h.SchedulerName,
		"=start-date="+spec.StartDate,
		"=start-time="+spec.StartTime,
		"=interval=0",
		"=on-event="+h.ScriptName,
		"=disabled=no",
	)
	if err != nil {
		// a lost connection leaves the outcome unknown; callers clear the
		// job on a fresh session
		if errors.Is(err, device.ErrConnectivity) {
			return device.JobHandle{}, fmt.Errorf("add scheduler: %w", err)
		}
		if rmErr := s.removeByName(ctx, scriptPath, h.ScriptName); rmErr != nil {
			s.log.Warn(ctx, "orphan script left on router", "script", h.ScriptName, "error", rmErr)
		}
		return device.JobHandle{}, fmt.Errorf("add scheduler: %w", err)
	}

	h.SchedulerID = sentenceMap(reply.Done)["ret"]
	if h.SchedulerID == "" {
		ids, err := s.idsByName(ctx, schedulerPath, h.SchedulerName)
		if err != nil {
			return device.JobHandle{}, fmt.Errorf("read scheduler id: %w", err)
		}
		if len(ids) > 0 {
			h.SchedulerID = ids[0]
		}
	}
	return h, nil
}

func (s *Session) RemoveExpiryJob(ctx context.Context, username string) error {
	schedErr := s.removeByName(ctx, schedulerPath, device.SchedulerName(username))
	scriptErr := s.removeByName(ctx, scriptPath, device.ScriptName(username))
	return errors.Join(schedErr, scriptErr)
}

func (s *Session) ListActiveSessions(ctx context.Context) ([]device.ActiveSession, error) {
	rows, err := s.print(ctx, activePath)
	if err != nil {
		return nil, err
	}
	out := make([]device.ActiveSession, 0, len(rows))
	for _, row := range rows {
		out = append(out, device.ActiveSession{
			ID:       row[".id"],
			User:     row["user"],
			Address:  row["address"],
			MAC:      row["mac-address"],
			Uptime:   row["uptime"],
			BytesIn:  parseCounter(row["bytes-in"]),
			BytesOut: parseCounter(row["bytes-out"]),
		})
	}
	return out, nil
}

func (s *Session) RemoveActiveSession(ctx context.Context, id string) error {
	_, err := s.run(ctx, activePath+"/remove", "=.id="+id)
	return err
}

func parseCounter(v string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
