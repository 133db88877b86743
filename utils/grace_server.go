package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_READ_TIMEOUT     = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT    = DEFAULT_READ_TIMEOUT
	DEFAULT_SHUTDOWN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server with signal driven graceful shutdown.
type Server struct {
	*http.Server

	log             *zap.Logger
	listener        net.Listener
	ready           chan struct{}
	shutdownTimeout time.Duration
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       DEFAULT_READ_TIMEOUT,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      DEFAULT_WRITE_TIMEOUT,
		},
		log:             log,
		ready:           make(chan struct{}),
		shutdownTimeout: DEFAULT_SHUTDOWN_TIMEOUT,
	}
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then drains
// in-flight requests. A clean shutdown returns nil.
func (srv *Server) Run(ctx context.Context) error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		close(srv.ready)
		return fmt.Errorf("net.Listen error: %w", err)
	}
	srv.listener = ln
	close(srv.ready)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
		srv.log.Info("graceful shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.log.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	srv.log.Info("HTTP server shutdown success")
	return nil
}

// ListenAddr blocks until Run has tried to listen and returns the bound
// address, or nil when listening failed.
func (srv *Server) ListenAddr() net.Addr {
	<-srv.ready
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}
