package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"scenecast/internal/api"
	"scenecast/internal/logging"
)

type statusSource interface {
	Status(ctx context.Context) Status
}

// apiServer serves the job API on paths.api_bind while the daemon runs.
type apiServer struct {
	bind     string
	logger   *slog.Logger
	status   statusSource
	queueSvc *api.QueueService

	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured; every method
// accepts a nil receiver.
func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	bind = strings.TrimSpace(bind)
	if bind == "" || d == nil {
		return nil
	}
	s := &apiServer{
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		status:   d,
		queueSvc: api.NewQueueService(d.store),
	}
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
	return s
}

// start binds the listener synchronously, so a taken port fails daemon
// start, then serves until ctx ends.
func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.listener = ln
	s.logger.Info("api server listening", logging.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", logging.Error(err))
		}
	}()
	context.AfterFunc(ctx, s.stop)
	return nil
}

// stop drains in-flight requests for up to five seconds.
func (s *apiServer) stop() {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
