package ctl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device/routeros"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
	"github.com/dmitrijs2005/hotspotkeeper/internal/server/auth"
)

type fakeSession struct {
	device.Session
	closed bool
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeGateway struct {
	cfg     routeros.Config
	err     error
	session *fakeSession
}

func (g *fakeGateway) Connect(ctx context.Context) (device.Session, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.session = &fakeSession{}
	return g.session, nil
}

func stubGateway(t *testing.T, g *fakeGateway) {
	t.Helper()
	old := newGateway
	t.Cleanup(func() { newGateway = old })
	newGateway = func(cfg routeros.Config) device.Gateway {
		g.cfg = cfg
		return g
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := run(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage: hotspotctl")

	code, _, errOut = run(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)

	code, _, _ = run(t, "help")
	assert.Equal(t, 0, code)
}

func TestRun_BadConfigFile(t *testing.T) {
	code, _, errOut := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "token", "-s", "a")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "read config")
}

func TestToken_UsesConfiguredSecret(t *testing.T) {
	cfg := writeConfig(t, "secret_key: from-file\n")

	code, out, errOut := run(t, "-c", cfg, "token", "--subject", "alice", "--ttl", "1h")
	require.Equal(t, 0, code, errOut)

	operator, err := auth.GetOperatorFromToken(strings.TrimSpace(out), []byte("from-file"))
	require.NoError(t, err)
	assert.Equal(t, "alice", operator)
}

func TestToken_Validation(t *testing.T) {
	code, _, errOut := run(t, "token")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--subject is required")

	code, _, errOut = run(t, "token", "-s", "a", "--ttl", "-1m")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--ttl must be positive")
}

func TestCheck_Reachable(t *testing.T) {
	g := &fakeGateway{}
	stubGateway(t, g)
	cfg := writeConfig(t, "router_address: 10.0.0.1:8728\nrouter_user: api\nrouter_password: pw\n")

	code, out, _ := run(t, "-c", cfg, "check", "--timeout", "2s")

	assert.Equal(t, 0, code)
	assert.Equal(t, "Router is reachable.\n", out)
	assert.Equal(t, routeros.Config{Address: "10.0.0.1:8728", User: "api", Password: "pw", CallTimeout: 2 * time.Second}, g.cfg)
	assert.True(t, g.session.closed)
}

func TestCheck_Unreachable(t *testing.T) {
	stubGateway(t, &fakeGateway{err: errors.Join(device.ErrAuth, errors.New("bad login"))})

	code, out, errOut := run(t, "check")

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Router self-check failed")
	assert.Contains(t, errOut, "bad login")
}

func TestCheck_AskPassword(t *testing.T) {
	g := &fakeGateway{}
	stubGateway(t, g)
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("typed"), nil }

	code, _, errOut := run(t, "check", "--ask-password", "--router", "r:1", "--user", "ops")

	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "Router password: ")
	assert.Equal(t, "typed", g.cfg.Password)
	assert.Equal(t, "r:1", g.cfg.Address)
	assert.Equal(t, "ops", g.cfg.User)
}

func TestCheck_PasswordReadFails(t *testing.T) {
	stubGateway(t, &fakeGateway{})
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }

	code, _, errOut := run(t, "check", "--ask-password")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not a terminal")
}

func TestPending_FileBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "queue")
	repo, err := pending.NewFileRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &pending.Request{Username: "user4821", Credential: "583920", Address: "10.0.0.5", Package: "7_days"}))
	require.NoError(t, repo.Save(ctx, &pending.Request{Username: "abc", Credential: "1", Address: "10.0.0.9", Package: "1_day"}))

	code, out, errOut := run(t, "pending", "--dir", dir)
	require.Equal(t, 0, code, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "USERNAME"))
	assert.True(t, strings.HasPrefix(lines[1], "abc"))
	assert.Contains(t, lines[2], "10.0.0.5")
	assert.NotContains(t, out, "583920")
}

func TestPending_Empty(t *testing.T) {
	code, out, _ := run(t, "pending", "--dir", filepath.Join(t.TempDir(), "empty"))
	assert.Equal(t, 0, code)
	assert.Equal(t, "No pending requests.\n", out)
}

func TestPending_OpenFails(t *testing.T) {
	code, _, errOut := run(t, "pending", "-b", "mongo")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)
}
