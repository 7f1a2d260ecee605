package audit

import (
	"context"
	"errors"
	"time"
)

// ErrStorage classifies every append or lookup failure of an audit [Store].
var ErrStorage = errors.New("audit storage failure")

// Store is an append-only collection of entries.
type Store interface {
	// Append adds e. Implementations must not reorder or rewrite prior entries.
	Append(ctx context.Context, e Entry) error
	// Candidates returns, in ascending (CreatedAt, ID) order, entries that may match
	// pf. Backends may over-return; they must never drop a matching entry.
	Candidates(ctx context.Context, pf Prefilter) ([]Entry, error)
}

// Initializer is implemented by stores that need idempotent schema setup.
type Initializer interface {
	Init(ctx context.Context) error
}

// Prefilter is the set of cheap equality and range predicates a backend can push
// down. Zero values mean "no constraint".
type Prefilter struct {
	UnitID        string
	ActorID       string
	Result        Result
	Severity      Severity
	EntityType    string
	EntityID      string
	CorrelationID string
	From          time.Time
	To            time.Time
}

// Match reports whether e satisfies every set predicate of pf. From and To are inclusive.
func (pf Prefilter) Match(e Entry) bool {
	if pf.UnitID != "" && e.UnitID != pf.UnitID {
		return false
	}
	if pf.ActorID != "" && e.ActorID != pf.ActorID {
		return false
	}
	if pf.Result != "" && e.Result != pf.Result {
		return false
	}
	if pf.Severity != "" && e.Severity != pf.Severity {
		return false
	}
	if pf.EntityType != "" && e.EntityType != pf.EntityType {
		return false
	}
	if pf.EntityID != "" && e.EntityID != pf.EntityID {
		return false
	}
	if pf.CorrelationID != "" && e.CorrelationID != pf.CorrelationID {
		return false
	}
	if !pf.From.IsZero() && e.CreatedAt.Before(pf.From) {
		return false
	}
	if !pf.To.IsZero() && e.CreatedAt.After(pf.To) {
		return false
	}
	return true
}
