package panelcore

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/jwt"
	"github.com/MrEthical07/panelcore/permission"
	"github.com/MrEthical07/panelcore/session"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build once.
type Builder struct {
	config Config

	table        *permission.Table
	userProvider UserProvider
	sessionStore session.Store
	auditStore   audit.Store
	auditSink    audit.Sink
	registerer   prometheus.Registerer
	logger       zerolog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder with [DefaultConfig], in-memory stores, the default
// permission table and a disabled logger.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserProvider sets the user store. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithSessionStore sets the session backend. Default: [session.MemoryStore].
func (b *Builder) WithSessionStore(s session.Store) *Builder {
	b.sessionStore = s
	return b
}

// WithAuditStore sets the audit backend. Default: [audit.MemoryStore]. Stores
// implementing [audit.Initializer] are initialized during Build.
func (b *Builder) WithAuditStore(s audit.Store) *Builder {
	b.auditStore = s
	return b
}

// WithAuditSink sets the mirror target used when Audit.MirrorEnabled is set.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithPermissionTable replaces [permission.DefaultTable].
func (b *Builder) WithPermissionTable(t *permission.Table) *Builder {
	b.table = t
	return b
}

// WithLogger sets the logger for swallowed failures and diagnostics.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsRegisterer registers the Engine collectors on reg.
func (b *Builder) WithMetricsRegisterer(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	return b
}

// WithClock overrides time.Now. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// Build validates the configuration, initializes stores and returns the Engine.
// A Builder can be built once.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	// -------- PERMISSION TABLE --------
	table := b.table
	if table == nil {
		t, err := permission.DefaultTable()
		if err != nil {
			return nil, err
		}
		table = t
	}
	if !table.IsUnrestricted(string(RoleUnrestricted)) {
		return nil, errors.New("permission table must grant the root capability to " + string(RoleUnrestricted))
	}

	// -------- STORES --------
	sessions := b.sessionStore
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	auditStore := b.auditStore
	if auditStore == nil {
		auditStore = audit.NewMemoryStore()
	}
	if initializer, ok := auditStore.(audit.Initializer); ok {
		if err := initializer.Init(ctx); err != nil {
			return nil, err
		}
	}

	metrics, err := NewMetrics(cfg.Metrics, b.registerer)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		table:        table,
		users:        b.userProvider,
		sessions:     sessions,
		query:        audit.NewQueryEngine(auditStore),
		metrics:      metrics,
		logger:       b.logger,
		now:          b.now,
		restrictedTo: Role(cfg.Audit.RestrictedRole),
	}

	// -------- AUDIT --------
	recorderOpts := []audit.RecorderOption{
		audit.WithClock(b.now),
		audit.WithLogger(b.logger),
		audit.WithFailureHook(func(audit.Input, error) {
			engine.metricInc(MetricAuditRecordFailed)
		}),
	}
	if cfg.Audit.MirrorEnabled {
		engine.dispatcher = audit.NewDispatcher(cfg.Audit.Mirror, b.auditSink, b.logger)
		recorderOpts = append(recorderOpts, audit.WithSink(engine.dispatcher))
	}
	engine.recorder = audit.NewRecorder(auditStore, recorderOpts...)

	// -------- ROUTING TOKEN --------
	if cfg.Routing.Enabled() {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:    cfg.Routing.TTL,
			Secret: []byte(cfg.Routing.Secret),
			Issuer: cfg.Routing.Issuer,
			Leeway: cfg.Routing.Leeway,
			Now:    b.now,
		})
		if err != nil {
			return nil, err
		}
		engine.routing = jm
	}

	b.built = true

	return engine, nil
}
