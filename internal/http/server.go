package http

import (
	"context"
	"net/http"
	"time"

	"github.com/indigo-iam/iam-service/internal/observability/logger"
)

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// ListenAndServe blocks until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe() error {
	logger.L().Info("http server listening",
		logger.Component("http"),
		logger.String("addr", s.srv.Addr),
	)
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.L().Info("http server shutting down", logger.Component("http"))
	return s.srv.Shutdown(ctx)
}
