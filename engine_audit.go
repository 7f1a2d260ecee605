package panelcore

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/panelcore/audit"
)

// Record appends an audit entry. IP, user agent and correlation id default to the
// values attached to ctx; a missing correlation id gets a fresh UUID.
//
// Record never fails the caller's operation: a rejected or lost entry is logged,
// counted and reported in RecordResult.Err for callers that care.
func (e *Engine) Record(ctx context.Context, in audit.Input) audit.RecordResult {
	if !e.ready() {
		return audit.RecordResult{Err: ErrEngineNotReady}
	}

	if in.IP == "" {
		in.IP = clientIPFromContext(ctx)
	}
	if in.UserAgent == "" {
		in.UserAgent = userAgentFromContext(ctx)
	}
	if in.CorrelationID == "" {
		in.CorrelationID = CorrelationIDFromContext(ctx)
	}
	if in.CorrelationID == "" {
		in.CorrelationID = uuid.NewString()
	}

	res := e.recorder.Record(ctx, in)
	if res.Err == nil {
		e.metricInc(MetricAuditRecorded)
	}
	return res
}
