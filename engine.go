package panelcore

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/jwt"
	"github.com/MrEthical07/panelcore/permission"
	"github.com/MrEthical07/panelcore/session"
)

// Engine answers who is calling, whether they may act, and what happened. It is
// safe for concurrent use once built.
type Engine struct {
	config       Config
	table        *permission.Table
	users        UserProvider
	sessions     session.Store
	recorder     *audit.Recorder
	query        *audit.QueryEngine
	dispatcher   *audit.Dispatcher
	routing      *jwt.Manager
	metrics      *Metrics
	logger       zerolog.Logger
	now          func() time.Time
	restrictedTo Role
}

// Close flushes the audit mirror. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.dispatcher.Close()
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// Metrics returns the Engine counters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// PermissionTable returns the table the Engine authorizes against.
func (e *Engine) PermissionTable() *permission.Table {
	if e == nil {
		return nil
	}
	return e.table
}

// AuditDropped returns how many entries the mirror dropped.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.sessions != nil && e.recorder != nil
}

// isRestricted reports whether u belongs to the tier that is redacted and may
// not export.
func (e *Engine) isRestricted(u User) bool {
	return e.restrictedTo != "" && u.Role == e.restrictedTo
}

func stripUser(rec *UserRecord) User {
	return rec.User
}
