package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-fleet/internal/audit"
	"github.com/nerrad567/gray-logic-fleet/internal/auth"
)

// defaultTokenTTLMinutes mirrors the auth package default for the
// expires_in field.
const defaultTokenTTLMinutes = 15

// tokenRequest is the request body for POST /auth/token.
type tokenRequest struct {
	Subject string    `json:"subject"`
	Role    auth.Role `json:"role"`
}

// tokenResponse is the response body for POST /auth/token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleIssueToken mints an access token for another caller, typically a
// commissioning tool or a read-only dashboard.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	signed, err := auth.GenerateAccessToken(req.Subject, req.Role, s.secCfg.JWT)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRole) || errors.Is(err, auth.ErrTokenInvalid) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to generate token")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTLMinutes
	}

	s.logger.Info("access token issued",
		"subject", req.Subject,
		"role", req.Role,
		"issued_by", subject(r),
	)
	s.recordAudit(r, audit.ActionIssue, audit.KindToken, req.Subject, map[string]any{"role": string(req.Role)})
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60, // seconds
	})
}
