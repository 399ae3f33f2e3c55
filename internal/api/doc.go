// Package api exposes the storefront session endpoints over HTTP.
//
// Shoppers use /api/user/* and the userToken cookie; administrators use
// /api/admin/* and the adminToken cookie. Guarded routes answer 401
// {"error":"not logged in"} for any missing, invalid, expired or
// wrong-kind session, and 500 only when the credential store fails.
package api
