package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hotspotkeeper/internal/audit"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/lease"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
)

func withSessions(fx *fixture) {
	fx.dev.sessions = []device.ActiveSession{
		{ID: "*A1", User: "user4821", Address: "10.0.0.5", MAC: "AA:BB:CC:00:11:22", Uptime: "1h2m3s", BytesIn: 3 * 1024 * 1024, BytesOut: 1572864},
		{ID: "*A2", User: "other", Address: "10.0.0.8", Uptime: "5m"},
	}
}

func TestActiveSessions(t *testing.T) {
	fx := newFixture()
	withSessions(fx)

	list, err := fx.engine.ActiveSessions(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "user4821", list[0].User)
	fx.assertSessionsClosed(t)
}

func TestActiveSessions_DeviceError(t *testing.T) {
	fx := newFixture()
	fx.dev.always["ListActiveSessions"] = device.ErrConnectivity

	_, err := fx.engine.ActiveSessions(context.Background())
	requireKind(t, err, KindConnectivity)
	fx.assertSessionsClosed(t)
}

func TestUsage_Active(t *testing.T) {
	fx := newFixture()
	withSessions(fx)

	u, err := fx.engine.Usage(context.Background(), "user4821")

	require.NoError(t, err)
	assert.True(t, u.Active)
	assert.Equal(t, 1.5, u.UploadMB)
	assert.Equal(t, 3.0, u.DownloadMB)
	assert.Equal(t, "Usage for user4821: upload 1.50 MB, download 3.00 MB.", u.Message())
}

func TestUsage_NotActiveIsNotAnError(t *testing.T) {
	fx := newFixture()
	withSessions(fx)

	u, err := fx.engine.Usage(context.Background(), "nobody")

	require.NoError(t, err)
	assert.False(t, u.Active)
	assert.Zero(t, u.UploadMB)
	assert.Equal(t, "User nobody is not active.", u.Message())
}

func TestUsage_ConnectError(t *testing.T) {
	fx := newFixture()
	fx.dev.connectErr = device.ErrAuth

	_, err := fx.engine.Usage(context.Background(), "user4821")
	requireKind(t, err, KindAuth)
}

func TestToMB(t *testing.T) {
	assert.Equal(t, 0.0, toMB(0))
	assert.Equal(t, 1.0, toMB(1024*1024))
	assert.Equal(t, 0.01, toMB(10486))
	assert.Equal(t, 2.46, toMB(2580000))
}

func TestPending(t *testing.T) {
	fx := newFixture()
	fx.repo.items["aaa"] = pending.Request{Username: "aaa"}

	list, err := fx.engine.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aaa", list[0].Username)

	fx.repo.listErr = errors.New("db down")
	_, err = fx.engine.Pending(context.Background())
	requireKind(t, err, KindInternal)
}

func TestSelfCheck(t *testing.T) {
	fx := newFixture()
	require.NoError(t, fx.engine.SelfCheck(context.Background()))
	fx.assertSessionsClosed(t)

	fx.dev.connectErr = device.ErrAuth
	requireKind(t, fx.engine.SelfCheck(context.Background()), KindAuth)
}

func TestReportSelfCheck_RecordsEvent(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	require.NoError(t, fx.engine.ReportSelfCheck(ctx))
	fx.dev.connectErr = device.ErrConnectivity
	require.Error(t, fx.engine.ReportSelfCheck(ctx))

	events := fx.sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.OpSelfCheck, events[0].Operation)
	assert.Equal(t, audit.OutcomeSuccess, events[0].Outcome)
	assert.Equal(t, "Router is reachable.", events[0].Message)
	assert.Equal(t, audit.OutcomeFailure, events[1].Outcome)
	assert.Equal(t, string(KindConnectivity), events[1].Kind)
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(newMemRepo(), newFakeDevice(), Options{})
	assert.NotNil(t, e.clock)
	assert.Equal(t, time.Local, e.loc)
	assert.Equal(t, device.DefaultEncoding(), e.enc)
	assert.NotNil(t, e.locker)
	assert.NotNil(t, e.sink)
	assert.NotNil(t, e.log)

	e = NewEngine(newMemRepo(), newFakeDevice(), Options{Clock: lease.Fixed(refTime)})
	assert.Equal(t, refTime, e.clock.Now())
}
