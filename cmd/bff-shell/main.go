// ABOUTME: Entry point for the shell portal BFF
// ABOUTME: Owns browser sessions and the token handoff to the shell frontend

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/portalmesh/portal-bff/internal/config"
	"github.com/portalmesh/portal-bff/internal/httpserver"
	"github.com/portalmesh/portal-bff/internal/logging"
	"github.com/portalmesh/portal-bff/internal/session"
	"github.com/portalmesh/portal-bff/internal/shell"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _         __  __           _          _ _
 | |__  ___/ _|/ _|      ___| |__   ___| | |
 | '_ \/ _ \ |_| |_ ____ / __| '_ \ / _ \ | |
 | |_) |  _|  _|  _|____|\__ \ | | |  __/ | |
 |_.__/\___|_| |_|       |___/_| |_|\___|_|_|
`

// sweepInterval is how often expired sessions are purged from the store.
const sweepInterval = 10 * time.Minute

// getConfigPath returns the path to the shell BFF config file.
// Priority: PORTAL_BFF_CONFIG env var > XDG_CONFIG_HOME/portal-bff/shell.yaml > ~/.config/portal-bff/shell.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PORTAL_BFF_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "shell.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "portal-bff", "shell.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: bff-shell <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the shell BFF server")
		fmt.Println("  health   Check shell BFF health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateShell(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Sessions: %s\n", cfg.Session.StorePath)
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Print("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting bff-shell", "config", configPath, "http_addr", cfg.Server.HTTPAddr)

	store, err := session.NewSQLiteStore(cfg.Session.StorePath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	go sweepSessions(ctx, store, logger)

	srv := shell.NewServer(cfg, store, logger)
	return httpserver.New(cfg, srv.Handler(), logger).Run(ctx)
}

// sweepSessions periodically purges expired sessions until ctx is canceled.
func sweepSessions(ctx context.Context, store session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Error("sweeping expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("swept expired sessions", "removed", removed)
			}
		}
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
