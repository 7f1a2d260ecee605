package panelcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/session"
)

const authModule = "auth"

// CreateSession issues an opaque session token for an active user. The token is
// returned once; only its hash is stored.
func (e *Engine) CreateSession(ctx context.Context, userID, ip, userAgent string) (*SessionGrant, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	rec, err := e.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusActive {
		e.metricInc(MetricSessionCreateDenied)
		e.recordSessionEvent(ctx, audit.Input{
			ActorID:   rec.ID,
			Action:    audit.ActionSessionCreate,
			UnitID:    rec.UnitID,
			IP:        ip,
			UserAgent: userAgent,
			Result:    audit.ResultDenied,
			Severity:  audit.SeverityHigh,
			Metadata:  audit.Metadata{Extra: map[string]any{"reason": "account_suspended"}},
		})
		return nil, ErrAccountSuspended
	}

	token, err := session.NewToken()
	if err != nil {
		return nil, err
	}
	hash, err := session.HashToken(token)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	sess := &session.Session{
		TokenHash: hash,
		UserID:    rec.ID,
		IP:        ip,
		UserAgent: userAgent,
		IssuedAt:  now,
		ExpiresAt: now.Add(e.config.Session.TTL),
	}
	if err := e.sessions.Save(ctx, sess, e.config.Session.TTL); err != nil {
		return nil, storageError("save session", err)
	}

	e.metricInc(MetricSessionCreated)
	e.recordSessionEvent(ctx, audit.Input{
		ActorID:   rec.ID,
		Action:    audit.ActionSessionCreate,
		UnitID:    rec.UnitID,
		IP:        ip,
		UserAgent: userAgent,
	})

	return &SessionGrant{
		Token:     token,
		User:      stripUser(rec),
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// VerifySession resolves token to its user. The user is re-read on every call so
// role, unit and status changes apply immediately. IP is compared against the
// session but only rejected when Session.EnforceIPBinding is set.
func (e *Engine) VerifySession(ctx context.Context, token, ip string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	u, err := e.verifySession(ctx, token, ip)
	if err != nil {
		e.metricInc(MetricSessionRejected)
		return nil, err
	}
	e.metricInc(MetricSessionVerified)
	return u, nil
}

func (e *Engine) verifySession(ctx context.Context, token, ip string) (*User, error) {
	hash, err := session.HashToken(token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	sess, err := e.sessions.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storageError("get session", err)
	}

	if sess.Expired(e.now()) {
		e.metricInc(MetricSessionExpired)
		if _, err := e.sessions.Delete(ctx, hash); err != nil {
			e.logger.Warn().Err(err).Str("user_id", sess.UserID).Msg("expired session cleanup failed")
		}
		return nil, ErrSessionExpired
	}

	rec, err := e.lookupUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if rec.Status != StatusActive {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrAccountSuspended)
	}

	if ip != "" && sess.IP != "" && ip != sess.IP {
		e.metricInc(MetricSessionIPMismatch)
		e.logger.Debug().
			Str("user_id", sess.UserID).
			Str("session_ip", sess.IP).
			Str("request_ip", ip).
			Msg("session ip mismatch")
		if e.config.Session.EnforceIPBinding {
			return nil, ErrSessionIPMismatch
		}
	}

	u := stripUser(rec)
	return &u, nil
}

// RevokeSession deletes the session behind token. Unknown or malformed tokens are
// not an error.
func (e *Engine) RevokeSession(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	hash, err := session.HashToken(token)
	if err != nil {
		return nil
	}

	sess, err := e.sessions.Get(ctx, hash)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = nil
	case err != nil:
		return storageError("get session", err)
	}

	deleted, err := e.sessions.Delete(ctx, hash)
	if err != nil {
		return storageError("delete session", err)
	}
	if deleted && sess != nil {
		e.metricInc(MetricSessionRevoked)
		e.recordSessionEvent(ctx, audit.Input{
			ActorID:   sess.UserID,
			Action:    audit.ActionSessionRevoke,
			IP:        sess.IP,
			UserAgent: sess.UserAgent,
		})
	}
	return nil
}

// RevokeUserSessions deletes every session of userID and returns how many were
// removed.
func (e *Engine) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, storageError("delete user sessions", err)
	}
	if n > 0 {
		e.metrics.Add(MetricSessionRevoked, uint64(n))
		e.recordSessionEvent(ctx, audit.Input{
			ActorID:  userID,
			Action:   audit.ActionSessionRevoke,
			Severity: audit.SeverityMedium,
			Metadata: audit.Metadata{Extra: map[string]any{"count": n, "scope": "all"}},
		})
	}
	return n, nil
}

// IssueRoutingToken signs a short-lived routing token for u. It carries no
// authority: handlers must still call [Engine.VerifySession].
func (e *Engine) IssueRoutingToken(u User, ip string) (string, error) {
	if e == nil || e.routing == nil {
		return "", ErrRoutingTokenDisabled
	}
	token, err := e.routing.Issue(u.ID, string(u.Role), ip)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricRoutingTokenIssued)
	return token, nil
}

// InspectRoutingToken checks the structure, signature and expiry of token. It
// cannot see revocation.
func (e *Engine) InspectRoutingToken(token string) (*RoutingClaims, error) {
	if e == nil || e.routing == nil {
		return nil, ErrRoutingTokenDisabled
	}
	claims, err := e.routing.Parse(token)
	if err != nil {
		e.metricInc(MetricRoutingTokenRejected)
		return nil, fmt.Errorf("%w: %v", ErrRoutingTokenInvalid, err)
	}
	return claims, nil
}

func (e *Engine) lookupUser(ctx context.Context, userID string) (*UserRecord, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	rec, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("get user", err)
	}
	if rec == nil {
		return nil, ErrUserNotFound
	}
	return rec, nil
}

func (e *Engine) recordSessionEvent(ctx context.Context, in audit.Input) {
	if !e.config.Audit.RecordSessionEvents {
		return
	}
	in.Module = authModule
	in.EntityType = "session"
	e.Record(ctx, in)
}
