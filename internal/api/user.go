// ABOUTME: Password login for both kinds plus shopper registration, Google login, logout and me
// ABOUTME: Successful logins set the session cookie via the cookie policy

package api

import (
	"errors"
	"net/http"

	"github.com/2389/storefront-gateway/internal/auth"
	"github.com/2389/storefront-gateway/internal/store"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type federatedRequest struct {
	// Credential is a provider-signed ID token. Required when a federated
	// verifier is configured; Email and Username are then ignored.
	Credential string `json:"credential"`
	Email      string `json:"email"`
	Username   string `json:"username"`
}

type principalResponse struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	s.passwordLogin(w, r, store.KindUser, auth.UserCookieName)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	s.passwordLogin(w, r, store.KindAdmin, auth.AdminCookieName)
}

// passwordLogin is shared by both kinds. All credential failures produce the
// same status and body.
func (s *Server) passwordLogin(w http.ResponseWriter, r *http.Request, kind store.PrincipalKind, cookieName string) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	sess, err := s.auth.LoginWithPassword(r.Context(), req.Email, req.Password, kind)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		s.logger.Error("password login failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	s.cookies.Set(w, cookieName, sess.Token)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful", Email: sess.Principal.Email})
}

func (s *Server) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	p, err := s.auth.Register(r.Context(), auth.RegisterRequest{
		Kind:        store.KindUser,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Username,
	})
	if !s.writeRegisterError(w, err) {
		return
	}

	writeJSON(w, http.StatusCreated, principalResponse{Email: p.Email, Username: p.DisplayName})
}

func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	available, err := s.auth.EmailAvailable(r.Context(), store.KindUser, req.Email)
	if errors.Is(err, auth.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("email availability check failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if !available {
		writeError(w, http.StatusConflict, msgEmailTaken)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": true})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.federatedIdentity(w, r)
	if !ok {
		return
	}

	sess, err := s.auth.LoginWithFederatedIdentity(r.Context(), ident.Email, ident.DisplayName)
	if errors.Is(err, auth.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("federated login failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	s.cookies.Set(w, auth.UserCookieName, sess.Token)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful", Email: sess.Principal.Email})
}

func (s *Server) handleGoogleRegister(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.federatedIdentity(w, r)
	if !ok {
		return
	}

	p, err := s.auth.RegisterFederated(r.Context(), ident.Email, ident.DisplayName)
	if !s.writeRegisterError(w, err) {
		return
	}

	writeJSON(w, http.StatusCreated, principalResponse{Email: p.Email, Username: p.DisplayName})
}

func (s *Server) handleUserLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.Clear(w, auth.UserCookieName)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := auth.MustIdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, principalResponse{ID: id.PrincipalID, Email: id.Email, Username: id.DisplayName})
}

// federatedIdentity decodes a federated request and resolves who it is for,
// writing the error response itself when it returns false.
func (s *Server) federatedIdentity(w http.ResponseWriter, r *http.Request) (*auth.FederatedIdentity, bool) {
	var req federatedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return nil, false
	}

	if s.federated == nil {
		return &auth.FederatedIdentity{Email: req.Email, DisplayName: req.Username}, true
	}

	if req.Credential == "" {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return nil, false
	}
	ident, err := s.federated.VerifyIdentity(r.Context(), req.Credential)
	if err != nil {
		s.logger.Info("federated credential rejected", "error", err)
		writeError(w, http.StatusUnauthorized, msgFederatedRejected)
		return nil, false
	}
	return ident, true
}

// writeRegisterError maps a registration error to a response. It returns
// true when err is nil and the caller should write the success response.
func (s *Server) writeRegisterError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
	return false
}
