package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/panelcore/internal/ids"
)

// RecordResult is the outcome of [Recorder.Record]. Err is non-nil when the
// entry was rejected or could not be stored; callers treat it as informational.
type RecordResult struct {
	Entry Entry
	Err   error
}

// Recorder assigns identity and time to audit input and appends it to a [Store].
type Recorder struct {
	store     Store
	now       func() time.Time
	logger    zerolog.Logger
	sink      Sink
	onFailure func(Input, error)

	mu   sync.Mutex
	last time.Time
}

// RecorderOption configures a [Recorder].
type RecorderOption func(*Recorder)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(l zerolog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// WithSink forwards every stored entry to s, typically a [Dispatcher].
func WithSink(s Sink) RecorderOption {
	return func(r *Recorder) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithFailureHook is called for every rejected or unstored entry.
func WithFailureHook(fn func(Input, error)) RecorderOption {
	return func(r *Recorder) { r.onFailure = fn }
}

// NewRecorder returns a Recorder appending to store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		now:    time.Now,
		logger: zerolog.Nop(),
		sink:   NoOpSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record validates in, applies defaults, stamps ID and CreatedAt, and appends the
// entry. CreatedAt is truncated to microseconds and strictly increasing across
// calls on the same Recorder.
func (r *Recorder) Record(ctx context.Context, in Input) RecordResult {
	if err := validateInput(in); err != nil {
		r.fail(in, err)
		return RecordResult{Err: err}
	}

	e := Entry{
		ActorID:       in.ActorID,
		Action:        in.Action,
		Module:        in.Module,
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		UnitID:        in.UnitID,
		IP:            in.IP,
		UserAgent:     in.UserAgent,
		Result:        in.Result,
		Severity:      in.Severity,
		Metadata:      in.Metadata.Clone(),
		CorrelationID: in.CorrelationID,
	}
	if e.Result == "" {
		e.Result = ResultSuccess
	}
	if e.Severity == "" {
		e.Severity = SeverityLow
	}

	r.mu.Lock()
	e.CreatedAt = r.nextTime()
	e.ID = ids.NewAt(e.CreatedAt)
	err := r.store.Append(ctx, e)
	if err == nil {
		r.last = e.CreatedAt
	}
	r.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrStorage) {
			err = fmt.Errorf("%w: %v", ErrStorage, err)
		}
		r.fail(in, err)
		return RecordResult{Entry: e, Err: err}
	}

	r.sink.Emit(ctx, e)
	return RecordResult{Entry: e}
}

func (r *Recorder) nextTime() time.Time {
	t := r.now().UTC().Truncate(time.Microsecond)
	if !t.After(r.last) {
		t = r.last.Add(time.Microsecond)
	}
	return t
}

func (r *Recorder) fail(in Input, err error) {
	r.logger.Error().
		Err(err).
		Str("action", in.Action).
		Str("module", in.Module).
		Str("actor_id", in.ActorID).
		Msg("audit record dropped")
	if r.onFailure != nil {
		r.onFailure(in, err)
	}
}

func validateInput(in Input) error {
	var violations []Violation
	required := []struct {
		field, value string
	}{
		{"actorId", in.ActorID},
		{"action", in.Action},
		{"module", in.Module},
	}
	for _, f := range required {
		if f.value == "" {
			violations = append(violations, Violation{Field: f.field, Rule: "required", Message: "is required"})
		}
	}
	if in.Result != "" && !in.Result.Valid() {
		violations = append(violations, Violation{Field: "result", Rule: "oneof", Message: "must be one of: SUCCESS FAIL DENIED"})
	}
	if in.Severity != "" && !in.Severity.Valid() {
		violations = append(violations, Violation{Field: "severity", Rule: "oneof", Message: "must be one of: LOW MEDIUM HIGH CRITICAL"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
