// ABOUTME: Entry point for the child portal BFF
// ABOUTME: Validates relayed user tokens and mediates B2B tokens to downstream APIs

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/portalmesh/portal-bff/internal/auth"
	"github.com/portalmesh/portal-bff/internal/b2btoken"
	"github.com/portalmesh/portal-bff/internal/child"
	"github.com/portalmesh/portal-bff/internal/config"
	"github.com/portalmesh/portal-bff/internal/httpserver"
	"github.com/portalmesh/portal-bff/internal/logging"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _         __  __          _     _ _     _
 | |__  ___/ _|/ _|     ___| |__ (_) | __| |
 | '_ \/ _ \ |_| |_ ____/ __| '_ \| | |/ _' |
 | |_) |  _|  _|  _|____| (__| | | | | | (_| |
 |_.__/\___|_| |_|       \___|_| |_|_|_|\__,_|
`

// getConfigPath returns the path to the child BFF config file.
// Priority: PORTAL_BFF_CONFIG env var > XDG_CONFIG_HOME/portal-bff/child.yaml > ~/.config/portal-bff/child.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PORTAL_BFF_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "child.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "portal-bff", "child.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: bff-child <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the child BFF server")
		fmt.Println("  health   Check child BFF health")
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
	if err := cfg.ValidateChild(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Issuer:    %s\n", cfg.Auth.Issuer)
	green.Print("    ▶ ")
	fmt.Printf("User API:  %s\n", cfg.APIs.User.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Cust API:  %s\n", cfg.APIs.Customer.BaseURL)
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

	logger.Info("starting bff-child", "config", configPath, "http_addr", cfg.Server.HTTPAddr)

	keys := auth.NewJWKSClient(cfg.Auth.Issuer, cfg.Auth.JWKSCacheTTL, logger)
	verifier := auth.NewVerifier(keys, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.RolesClaim)

	acquirer := b2btoken.NewClientCredentialsAcquirer(cfg.B2B.TokenURL, cfg.B2B.ClientID, cfg.B2B.ClientSecret, logger)
	cache := b2btoken.NewCache(acquirer, b2btoken.WithExpiryBuffer(cfg.B2B.ExpiryBuffer))

	srv := child.NewServer(cfg, verifier, cache, logger)
	return httpserver.New(cfg, srv.Handler(), logger).Run(ctx)
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
