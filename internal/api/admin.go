// ABOUTME: Administrator endpoints: logout and the dashboard session check
// ABOUTME: Login is shared with shoppers in user.go; both routes sit behind the admin guard

package api

import (
	"net/http"

	"github.com/2389/storefront-gateway/internal/auth"
)

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.Clear(w, auth.AdminCookieName)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

// handleAdminDashboard lets the admin UI confirm its session and show who
// is signed in.
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	id := auth.MustIdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"email": id.Email})
}
