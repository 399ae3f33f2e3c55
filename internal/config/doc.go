// Package config handles configuration loading for storefront-gateway.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path given on the command line
//  2. Path from the STOREFRONT_CONFIG environment variable
//  3. ~/.config/storefront/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${STOREFRONT_JWT_SECRET}"
//
// # Configuration Sections
//
//	environment: "production"       # production, development, test
//
//	server:
//	  http_addr: "0.0.0.0:5080"
//	  read_header_timeout: "10s"
//
//	database:
//	  path: "/var/lib/storefront/gateway.db"
//
//	auth:
//	  jwt_secret: "${STOREFRONT_JWT_SECRET}"   # at least 32 bytes
//	  session_ttl: "24h"
//	  google_client_id: ""                     # optional
//
//	cors:
//	  allowed_origins:
//	    - "http://localhost:5173"
//
//	tailscale:
//	  enabled: false
//	  hostname: "storefront"
//	  https: true
//	  funnel: false
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// The environment decides the session cookie attributes: production cookies
// are Secure with SameSite=None, everything else is SameSite=Lax over plain
// HTTP.
package config
