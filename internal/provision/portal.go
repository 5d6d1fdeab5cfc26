package provision

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
)

const (
	notConnected = "Not Connected"
	notAvailable = "N/A"
	unlimited    = "Unlimited"
)

// PortalStatus authenticates an end user against their hotspot account and
// describes their account and current session. An unknown user yields
// NotFound and a wrong credential Unauthorized.
func (e *Engine) PortalStatus(ctx context.Context, username, credential string) (*PortalStatus, error) {
	session, err := e.connect(ctx, username)
	if err != nil {
		return nil, err
	}
	defer e.closeSession(ctx, session)

	acc, err := e.authenticate(ctx, session, username, credential)
	if err != nil {
		return nil, err
	}

	st := &PortalStatus{
		Username:  username,
		Profile:   orDefault(acc.Profile, notAvailable),
		Uptime:    notConnected,
		Address:   notAvailable,
		MAC:       notAvailable,
		Upload:    FormatBytes(0),
		Download:  FormatBytes(0),
		Remaining: orDefault(acc.LimitUptime, unlimited),
		Expires:   CommentExpiry(acc.Comment),
	}

	list, err := session.ListActiveSessions(ctx)
	if err != nil {
		return nil, deviceError(username, err)
	}
	for _, s := range list {
		if s.User != username {
			continue
		}
		st.Connected = true
		st.Uptime = FormatUptime(s.Uptime)
		st.Address = orDefault(s.Address, notAvailable)
		st.MAC = orDefault(s.MAC, notAvailable)
		st.Upload = FormatBytes(s.BytesOut)
		st.Download = FormatBytes(s.BytesIn)
		break
	}
	return st, nil
}

// Disconnect drops username's active session after checking the
// credential. It reports whether a session was removed.
func (e *Engine) Disconnect(ctx context.Context, username, credential string) (bool, error) {
	session, err := e.connect(ctx, username)
	if err != nil {
		return false, err
	}
	defer e.closeSession(ctx, session)

	if _, err := e.authenticate(ctx, session, username, credential); err != nil {
		return false, err
	}

	list, err := session.ListActiveSessions(ctx)
	if err != nil {
		return false, deviceError(username, err)
	}
	for _, s := range list {
		if s.User != username {
			continue
		}
		if err := session.RemoveActiveSession(ctx, s.ID); err != nil {
			return false, deviceError(username, err)
		}
		e.log.Info(ctx, "session disconnected", "username", username, "address", s.Address)
		return true, nil
	}
	return false, nil
}

func (e *Engine) authenticate(ctx context.Context, session device.Session, username, credential string) (*device.Account, error) {
	if strings.TrimSpace(username) == "" || credential == "" {
		return nil, newError(KindUnauthorized, username, nil)
	}
	acc, err := session.FindAccount(ctx, username)
	if err != nil {
		return nil, deviceError(username, err)
	}
	if acc == nil {
		return nil, newError(KindNotFound, username, nil)
	}
	if subtle.ConstantTimeCompare([]byte(acc.Credential), []byte(credential)) != 1 {
		return nil, newError(KindUnauthorized, username, nil)
	}
	return acc, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
