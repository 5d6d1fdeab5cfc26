package provision

import (
	"context"
	"math"
)

const bytesPerMB = 1024 * 1024

// ActiveSessions lists the sessions currently logged in on the device.
func (e *Engine) ActiveSessions(ctx context.Context) (Sessions, error) {
	session, err := e.connect(ctx, "")
	if err != nil {
		return nil, err
	}
	defer e.closeSession(ctx, session)

	list, err := session.ListActiveSessions(ctx)
	if err != nil {
		return nil, deviceError("", err)
	}
	return list, nil
}

// Usage reports the traffic of username's active session. A user who is
// not logged in yields Active=false and no error. Upload is the session's
// bytes-out counter and download its bytes-in counter.
func (e *Engine) Usage(ctx context.Context, username string) (*UsageResult, error) {
	list, err := e.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	res := &UsageResult{Username: username}
	for _, s := range list {
		if s.User != username {
			continue
		}
		res.Active = true
		res.UploadMB = toMB(s.BytesOut)
		res.DownloadMB = toMB(s.BytesIn)
		break
	}
	return res, nil
}

// toMB converts a byte counter to megabytes rounded to two decimals.
func toMB(n uint64) float64 {
	return math.Round(float64(n)/bytesPerMB*100) / 100
}
