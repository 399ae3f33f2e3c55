// Package gateway runs the storefront-gateway process.
//
// # Overview
//
// The gateway owns the SQLite credential store and the HTTP API built on top
// of it. New assembles the token codec, password hasher, authenticator,
// cookie policy and the two access guards from configuration and hands them
// to the api package.
//
// # Listeners
//
// The API is served on server.http_addr, or on a tsnet node when tailscale
// is enabled:
//
//   - plain HTTP on :80 of the tailnet address
//   - HTTPS on :443 with certificates issued by the tailnet (tailscale.https)
//   - public HTTPS through Funnel (tailscale.funnel)
//
// Production cookies are marked Secure, so a production deployment should
// sit behind HTTPS.
//
// # Lifecycle
//
//	gw, err := gateway.New(ctx, cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// Run shuts the HTTP server down gracefully and closes the store when its
// context ends.
package gateway
