// Package config handles configuration loading for the portal BFF services.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Both BFF binaries share one configuration shape; each validates only the
// sections it serves from: ValidateShell for bff-shell, ValidateChild for
// bff-child. A missing required field aborts startup before any listener is
// opened.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	b2b:
//	  client_secret: "${PORTAL_B2B_CLIENT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	b2b:
//	  expiry_buffer: "5m"
//	apis:
//	  timeout: "10s"
//
// # Configuration Sections
//
// Server and inbound token validation (both BFFs):
//
//	server:
//	  http_addr: "0.0.0.0:4001"
//	auth:
//	  issuer: "https://tenant.auth.example.com/"
//	  audience: "https://bff-shell"
//	  roles_claim: "https://bff-shell/roles"
//	  jwks_cache_ttl: "1h"
//
// B2B token acquisition and downstream APIs (child BFF):
//
//	b2b:
//	  token_url: "https://tenant.auth.example.com/oauth/token"
//	  client_id: "${PORTAL_B2B_CLIENT_ID}"
//	  client_secret: "${PORTAL_B2B_CLIENT_SECRET}"
//	  expiry_buffer: "5m"
//	apis:
//	  timeout: "10s"
//	  user:
//	    base_url: "http://api-user:3001"
//	    audience: "https://api-user"
//	  customer:
//	    base_url: "http://api-customer:3002"
//	    audience: "https://api-customer"
//
// Sessions and relay origins (shell BFF):
//
//	session:
//	  store_path: "/var/lib/portal/sessions.db"
//	  ttl: "8h"
//	  secure_cookie: true
//	relay:
//	  child_origin: "https://child.portal.example.com"
//
// Optional tailnet listener (either BFF):
//
//	tailscale:
//	  enabled: true
//	  hostname: "bff-child"
package config
