package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
)

// Engine is the part of provision.Engine the HTTP surface drives.
type Engine interface {
	Approve(ctx context.Context, d provision.Decision) (*provision.ApprovalResult, error)
	Reject(ctx context.Context, d provision.Decision) (*provision.RejectionResult, error)
	ActiveSessions(ctx context.Context) (provision.Sessions, error)
	Usage(ctx context.Context, username string) (*provision.UsageResult, error)
	Pending(ctx context.Context) ([]pending.Request, error)
	PortalStatus(ctx context.Context, username, credential string) (*provision.PortalStatus, error)
	Disconnect(ctx context.Context, username, credential string) (bool, error)
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxBodyBytes      = 64 << 10
)

type Server struct {
	address   string
	engine    Engine
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(address string, l logging.Logger, engine Engine, secretKey string) *Server {
	return &Server{
		address:   address,
		engine:    engine,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requireOperator)
	api.HandleFunc("/decisions", s.decide).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.sessions).Methods(http.MethodGet)
	api.HandleFunc("/usage/{username}", s.usage).Methods(http.MethodGet)
	api.HandleFunc("/pending", s.pendingList).Methods(http.MethodGet)

	portal := r.PathPrefix("/portal").Subrouter()
	portal.HandleFunc("/status", s.portalStatus).Methods(http.MethodPost)
	portal.HandleFunc("/logout", s.portalLogout).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
