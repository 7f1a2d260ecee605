package panelcore

import (
	"context"
	"time"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/permission"
)

const exportEntityType = "audit_log"

// ExportAudit renders every entry matching params, up to Export.MaxRows, as a CSV
// or JSON document and records one audit.export entry describing it. The
// restricted tier is refused before anything is read.
func (e *Engine) ExportAudit(ctx context.Context, caller User, params audit.QueryParams, format string) (*audit.Document, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.isRestricted(caller) {
		e.metricInc(MetricAuditExportDenied)
		return nil, ErrForbidden
	}
	if err := e.Authorize(caller, permission.ModuleAudit, permission.ActionExport, ""); err != nil {
		e.metricInc(MetricAuditExportDenied)
		return nil, err
	}

	f, err := audit.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	params, err = e.scopeParams(caller, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	items, total, err := e.query.Collect(ctx, params, e.config.Export.MaxRows)
	e.metrics.ObserveQuery(time.Since(start))
	if err != nil {
		return nil, err
	}

	doc, err := audit.Render(f, items, e.now())
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricAuditExport)

	meta := audit.Metadata{}.
		With("format", string(f)).
		With("filters", params.Filters()).
		With("count", doc.Count)
	if total > doc.Count {
		meta = meta.With("truncated", true).With("matched", total)
	}
	e.Record(ctx, audit.Input{
		ActorID:    caller.ID,
		Action:     audit.ActionExport,
		Module:     permission.ModuleAudit,
		EntityType: exportEntityType,
		UnitID:     caller.UnitID,
		Severity:   audit.SeverityMedium,
		Metadata:   meta,
	})

	return doc, nil
}
