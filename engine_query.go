package panelcore

import (
	"context"
	"time"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/permission"
)

// QueryAudit returns one page of the audit log as caller may see it. The unit
// filter of a non-unrestricted caller is forced to the caller's own unit, and
// entries are redacted for the restricted tier.
func (e *Engine) QueryAudit(ctx context.Context, caller User, params audit.QueryParams) (*audit.Page, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(caller, permission.ModuleAudit, permission.ActionRead, ""); err != nil {
		return nil, err
	}

	params, err := e.scopeParams(caller, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	page, err := e.query.Query(ctx, params)
	e.metrics.ObserveQuery(time.Since(start))
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricAuditQuery)

	if e.isRestricted(caller) {
		page.Items = audit.RedactAll(page.Items)
	}
	return page, nil
}

// scopeParams replaces client-supplied visibility constraints with ones derived
// from caller. A restricted caller cannot filter or search on fields it only
// ever sees masked.
func (e *Engine) scopeParams(caller User, params audit.QueryParams) (audit.QueryParams, error) {
	params.ActorID = ""
	if params.MyActionsOnly {
		params.ActorID = caller.ID
	}
	params.Redacted = e.isRestricted(caller)
	if params.Redacted {
		params.IP = ""
	}

	if e.table.IsUnrestricted(string(caller.Role)) {
		return params, nil
	}
	if caller.UnitID == "" {
		e.metricInc(MetricPermissionDenied)
		return params, ErrForbidden
	}
	params.UnitID = caller.UnitID
	return params, nil
}
