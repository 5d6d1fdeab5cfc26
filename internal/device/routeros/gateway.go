package routeros

import (
	"context"
	"errors"
	"fmt"
	"time"

	ros "github.com/go-routeros/routeros/v3"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
)

const defaultCallTimeout = 10 * time.Second

// Config holds the router management endpoint.
type Config struct {
	Address     string
	User        string
	Password    string
	CallTimeout time.Duration
}

// runner is the part of *routeros.Client the session uses.
type runner interface {
	RunArgs(sentence []string) (*ros.Reply, error)
}

// dial is a seam for tests.
var dial = func(address, user, password string, timeout time.Duration) (runner, func() error, error) {
	c, err := ros.DialTimeout(address, user, password, timeout)
	if err != nil {
		return nil, nil, err
	}
	return c, func() error { return closeClient(c) }, nil
}

func closeClient(c any) error {
	switch cl := c.(type) {
	case interface{ Close() error }:
		return cl.Close()
	case interface{ Close() }:
		cl.Close()
	}
	return nil
}

// Gateway dials a fresh API connection per Connect.
type Gateway struct {
	cfg Config
	log logging.Logger
}

func NewGateway(cfg Config, log logging.Logger) *Gateway {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Gateway{cfg: cfg, log: log.With("module", "routeros", "router", cfg.Address)}
}

func (g *Gateway) Connect(ctx context.Context) (device.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrConnectivity, err)
	}

	type result struct {
		r     runner
		close func() error
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		r, closeFn, err := dial(g.cfg.Address, g.cfg.User, g.cfg.Password, g.cfg.CallTimeout)
		ch <- result{r, closeFn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			// the dial may still succeed; do not leak the connection
			if res := <-ch; res.err == nil && res.close != nil {
				_ = res.close()
			}
		}()
		return nil, fmt.Errorf("%w: connect %s: %w", device.ErrConnectivity, g.cfg.Address, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, classifyDial(g.cfg.Address, res.err)
		}
		g.log.Debug(ctx, "router connected")
		return &Session{
			r:       res.r,
			closeFn: res.close,
			timeout: g.cfg.CallTimeout,
			log:     g.log,
		}, nil
	}
}

func classifyDial(addr string, err error) error {
	var devErr *ros.DeviceError
	if errors.As(err, &devErr) {
		return fmt.Errorf("%w: login to %s: %w", device.ErrAuth, addr, err)
	}
	return fmt.Errorf("%w: connect %s: %w", device.ErrConnectivity, addr, err)
}
