package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/konewka17/localtuya/internal/auth"
)

// Auth constants.
const (
	// ticketTTL is how long a WebSocket ticket is valid.
	ticketTTL = 60 * time.Second

	// defaultRefreshTTLHours is the refresh token lifetime when not configured.
	defaultRefreshTTLHours = 720 // 30 days

	// minPasswordLength is the minimum accepted password length.
	minPasswordLength = 8
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login and /auth/refresh.
type loginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	User         *auth.User `json:"user,omitempty"`
}

// refreshRequest is the request body for POST /auth/refresh and /auth/logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// changePasswordRequest is the request body for POST /auth/password.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleLogin authenticates a user and returns an access/refresh token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if s.userRepo == nil {
		writeInternalError(w, "authentication not configured")
		return
	}

	user, err := s.userRepo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Same response as a wrong password — don't leak which usernames exist
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	if !user.IsActive {
		writeUnauthorized(w, "account is inactive")
		return
	}

	resp, err := s.issueTokens(r, user)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}
	resp.User = user

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	s.auditLog("login", "user", user.ID, user.ID, nil)

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh exchanges a valid refresh token for a new token pair.
// Presenting a revoked token revokes the whole token family (theft detection).
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	if s.tokenRepo == nil || s.userRepo == nil {
		writeInternalError(w, "authentication not configured")
		return
	}

	stored, err := s.tokenRepo.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if stored.Revoked {
		// Token reuse after rotation: assume theft and kill the family.
		if revokeErr := s.tokenRepo.RevokeFamily(r.Context(), stored.FamilyID); revokeErr != nil {
			s.logger.Error("family revoke after token reuse failed", "error", revokeErr)
		}
		s.logger.Warn("refresh token reuse detected", "user_id", stored.UserID, "family_id", stored.FamilyID)
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if time.Now().After(stored.ExpiresAt) {
		writeUnauthorized(w, "refresh token expired")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), stored.UserID)
	if err != nil || !user.IsActive {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	// Rotate: mint a new raw token in the same family, revoke the old one.
	newRaw, err := auth.GenerateRefreshToken()
	if err != nil {
		writeInternalError(w, "refresh failed")
		return
	}
	newRT := &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   stored.FamilyID,
		TokenHash:  auth.HashToken(newRaw),
		DeviceInfo: r.UserAgent(),
		ExpiresAt:  time.Now().UTC().Add(s.refreshTTL()),
	}
	if err := s.tokenRepo.RotateRefreshToken(r.Context(), stored.ID, newRT); err != nil {
		s.logger.Error("refresh token rotation failed", "error", err)
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		writeInternalError(w, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  access,
		RefreshToken: newRaw,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTLSeconds(),
	})
}

// handleLogout revokes the presented refresh token's family.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		// Access token alone is stateless — nothing to revoke without the refresh token.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.tokenRepo != nil {
		if stored, err := s.tokenRepo.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken)); err == nil {
			if err := s.tokenRepo.RevokeFamily(r.Context(), stored.FamilyID); err != nil {
				s.logger.Error("logout revoke failed", "error", err)
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authenticated user's account and permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		writeInternalError(w, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"permissions": auth.PermissionsForRole(user.Role),
	})
}

// handleChangePassword lets the authenticated user change their own password.
// All refresh token sessions are revoked afterwards.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeBadRequest(w, "new password must be at least 8 characters")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		writeInternalError(w, "failed to load account")
		return
	}

	ok, err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeInternalError(w, "failed to change password")
		return
	}

	if err := s.userRepo.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		writeInternalError(w, "failed to change password")
		return
	}

	// Force re-login everywhere else
	if s.tokenRepo != nil {
		if err := s.tokenRepo.RevokeAllForUser(r.Context(), user.ID); err != nil {
			s.logger.Error("session revoke after password change failed", "error", err)
		}
	}

	s.auditLog("change_password", "user", user.ID, user.ID, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// issueTokens mints a fresh access token and a new refresh token family.
func (s *Server) issueTokens(r *http.Request, user *auth.User) (loginResponse, error) {
	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		return loginResponse{}, err
	}

	raw, err := auth.GenerateRefreshToken()
	if err != nil {
		return loginResponse{}, err
	}

	if s.tokenRepo != nil {
		rt := &auth.RefreshToken{
			UserID:     user.ID,
			TokenHash:  auth.HashToken(raw),
			DeviceInfo: r.UserAgent(),
			ExpiresAt:  time.Now().UTC().Add(s.refreshTTL()),
		}
		if err := s.tokenRepo.Create(r.Context(), rt); err != nil {
			return loginResponse{}, err
		}
	}

	return loginResponse{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTLSeconds(),
	}, nil
}

// refreshTTL returns the configured refresh token lifetime.
func (s *Server) refreshTTL() time.Duration {
	hours := s.secCfg.JWT.RefreshTokenTTL
	if hours <= 0 {
		hours = defaultRefreshTTLHours
	}
	return time.Duration(hours) * time.Hour
}

// accessTTLSeconds returns the access token lifetime in seconds.
func (s *Server) accessTTLSeconds() int {
	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 // default 15 minutes
	}
	return ttl * 60
}

// ─── WebSocket tickets ─────────────────────────────────────────────

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

// ticketEntry carries the identity captured when the ticket was issued.
type ticketEntry struct {
	expiresAt time.Time
	userID    string
	role      auth.Role
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}

	ticket, err := auth.GenerateRefreshToken() // same 256-bit random format
	if err != nil {
		writeInternalError(w, "failed to generate ticket")
		return
	}

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		expiresAt: time.Now().Add(ticketTTL),
		userID:    claims.Subject,
		role:      claims.Role,
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validateTicket checks if a ticket is valid and consumes it (single-use).
func (s *Server) validateTicket(ticket string) (ticketEntry, bool) {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	entry, ok := s.tickets.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(s.tickets.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// cleanExpiredTickets removes expired tickets from the store.
func (s *Server) cleanExpiredTickets() {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	now := time.Now()
	for ticket, entry := range s.tickets.tickets {
		if now.After(entry.expiresAt) {
			delete(s.tickets.tickets, ticket)
		}
	}
}

// cleanTicketsLoop runs cleanExpiredTickets periodically until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanExpiredTickets()
		}
	}
}
