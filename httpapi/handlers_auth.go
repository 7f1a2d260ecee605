package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/MrEthical07/panelcore"
	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/middleware"
)

const maxLoginBody = 4 << 10

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      panelcore.User `json:"user"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Modules   []string       `json:"modules"`
}

type meResponse struct {
	User    panelcore.User `json:"user"`
	Modules []string       `json:"modules"`
	// RoutingToken reports whether the request carried a valid routing token.
	RoutingToken bool `json:"routingToken"`
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, s.logger, audit.NewValidationError("body", "json", "must be a JSON object with email and password"))
		return
	}

	var violations []panelcore.Violation
	if strings.TrimSpace(req.Email) == "" {
		violations = append(violations, panelcore.Violation{Field: "email", Rule: "required", Message: "is required"})
	}
	if req.Password == "" {
		violations = append(violations, panelcore.Violation{Field: "password", Rule: "required", Message: "is required"})
	}
	if len(violations) > 0 {
		writeError(w, s.logger, &panelcore.ValidationError{Violations: violations})
		return
	}

	ip := middleware.ClientIP(r)
	userID, err := s.creds.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, panelcore.ErrUnauthenticated) {
			s.logger.Info().Str("ip", ip).Msg("login rejected")
		}
		writeError(w, s.logger, err)
		return
	}

	grant, err := s.engine.CreateSession(r.Context(), userID, ip, r.UserAgent())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(grant.Token, int(s.cfg.Session.TTL/time.Second)))
	if s.cfg.Routing.Enabled() {
		token, err := s.engine.IssueRoutingToken(grant.User, ip)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", grant.User.ID).Msg("routing token not issued")
		} else {
			http.SetCookie(w, s.routingCookie(token, int(s.cfg.Routing.TTL/time.Second)))
		}
	}

	writeJSON(w, s.logger, http.StatusOK, loginResponse{
		User:      grant.User,
		ExpiresAt: grant.ExpiresAt,
		Modules:   s.engine.AccessibleModules(grant.User.Role),
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.SessionToken(r, s.cfg.Session.CookieName); ok {
		if err := s.engine.RevokeSession(r.Context(), token); err != nil {
			writeError(w, s.logger, err)
			return
		}
	}

	http.SetCookie(w, s.sessionCookie("", -1))
	if s.cfg.Routing.Enabled() {
		http.SetCookie(w, s.routingCookie("", -1))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := panelcore.UserFromContext(r.Context())
	if !ok {
		writeError(w, s.logger, panelcore.ErrUnauthenticated)
		return
	}
	claims, _ := middleware.RoutingClaimsFromContext(r.Context())

	writeJSON(w, s.logger, http.StatusOK, meResponse{
		User:         user,
		Modules:      s.engine.AccessibleModules(user.Role),
		RoutingToken: claims != nil && claims.UID == user.ID,
	})
}

func (s *server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: s.cfg.Session.SameSite(),
	}
}

func (s *server) routingCookie(value string, maxAge int) *http.Cookie {
	c := s.sessionCookie(value, maxAge)
	c.Name = s.cfg.Routing.CookieName
	return c
}
