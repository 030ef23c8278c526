// ABOUTME: Shared HTTP server lifecycle for the shell and child BFF binaries.
// ABOUTME: Handles TCP or tailnet listeners, serve loop, and graceful shutdown.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/portalmesh/portal-bff/internal/config"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is canceled.
const shutdownTimeout = 5 * time.Second

// Server wraps an http.Server with listener setup and graceful shutdown.
// When Tailscale is enabled in the config it joins the tailnet via tsnet
// and listens there instead of on a local TCP address.
type Server struct {
	cfg         config.ServerConfig
	tsCfg       config.TailscaleConfig
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// New creates a Server for the given handler. The handler is typically the
// fully assembled route mux of a shell or child BFF.
func New(cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		cfg:   cfg.Server,
		tsCfg: cfg.Tailscale,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "httpserver"),
	}
}

// Run starts the server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	serveErr := s.waitForShutdownSignal(ctx, errCh)
	shutdownErr := s.gracefulShutdown()

	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// setupListener creates a listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.tsCfg.Enabled {
		if s.cfg.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.cfg.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupTailscaleListener joins the tailnet and listens on :80 there.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	stateDir, err := resolveTailscaleStateDir(s.tsCfg.StateDir, s.tsCfg.Hostname)
	if err != nil {
		return nil, err
	}
	authKey := s.tsCfg.AuthKey
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  s.tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: s.tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", s.tsCfg.Hostname, "state_dir", stateDir, "ephemeral", s.tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(status)

	ln, err := s.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", s.tsCfg.Hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	if s.tsnetServer != nil {
		if closeErr := s.tsnetServer.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("tailscale shutdown: %w", closeErr)
		}
	}
	return err
}

// resolveTailscaleStateDir returns the state directory, using a per-hostname
// default under the user's home if not configured.
func resolveTailscaleStateDir(configured, hostname string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "portal-bff", hostname), nil
}
