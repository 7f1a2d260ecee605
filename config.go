package panelcore

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/internal/logging"
)

// Config is the full panelcore configuration. The Engine reads Session, Routing,
// Audit, Export and Metrics; the remaining sections configure the serve binary.
type Config struct {
	Session   SessionConfig   `koanf:"session"`
	Routing   RoutingConfig   `koanf:"routing"`
	Audit     AuditConfig     `koanf:"audit"`
	Export    ExportConfig    `koanf:"export"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   logging.Config  `koanf:"logging"`
	Redis     RedisConfig     `koanf:"redis"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	HTTP      HTTPConfig      `koanf:"http"`
	Directory DirectoryConfig `koanf:"directory"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls stateful sessions and the session cookie.
type SessionConfig struct {
	TTL         time.Duration `koanf:"ttl"`
	RedisPrefix string        `koanf:"redis_prefix"`
	// EnforceIPBinding rejects verification from an IP other than the one the
	// session was created from. Off by default: mismatches are only counted.
	EnforceIPBinding bool   `koanf:"enforce_ip_binding"`
	CookieName       string `koanf:"cookie_name"`
	CookieSecure     bool   `koanf:"cookie_secure"`
	// CookieSameSite is strict, lax or none.
	CookieSameSite string `koanf:"cookie_same_site"`
}

// SameSite returns the http.SameSite mode for CookieSameSite.
func (c SessionConfig) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

/*
====================================
ROUTING TOKEN CONFIG
====================================
*/

// RoutingConfig controls the stateless routing token. An empty Secret disables it.
type RoutingConfig struct {
	Secret     string        `koanf:"secret"`
	TTL        time.Duration `koanf:"ttl"`
	Issuer     string        `koanf:"issuer"`
	Leeway     time.Duration `koanf:"leeway"`
	CookieName string        `koanf:"cookie_name"`
}

// Enabled reports whether a secret is configured.
func (c RoutingConfig) Enabled() bool {
	return c.Secret != ""
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the recorder, the query redaction tier and the mirror.
type AuditConfig struct {
	RedisPrefix         string `koanf:"redis_prefix"`
	RecordSessionEvents bool   `koanf:"record_session_events"`
	// RestrictedRole is the tier that sees redacted entries and may not export.
	RestrictedRole string                 `koanf:"restricted_role"`
	MirrorEnabled  bool                   `koanf:"mirror_enabled"`
	Mirror         audit.DispatcherConfig `koanf:"mirror"`
}

/*
====================================
EXPORT CONFIG
====================================
*/

// ExportConfig bounds export size.
type ExportConfig struct {
	MaxRows int `koanf:"max_rows"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled                 bool   `koanf:"enabled"`
	EnableLatencyHistograms bool   `koanf:"enable_latency_histograms"`
	Path                    string `koanf:"path"`
}

/*
====================================
SERVE CONFIG
====================================
*/

// RedisConfig selects the Redis backend. An empty Addr means in-memory stores.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// PostgresConfig selects the Postgres audit store. An empty DSN disables it.
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`
}

// DirectoryConfig points at the YAML user file.
type DirectoryConfig struct {
	UsersFile string `koanf:"users_file"`
}

// DefaultConfig returns a configuration that runs entirely in memory.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:            7 * 24 * time.Hour,
			RedisPrefix:    "ps",
			CookieName:     "panel_session",
			CookieSecure:   true,
			CookieSameSite: "strict",
		},
		Routing: RoutingConfig{
			TTL:        15 * time.Minute,
			Issuer:     "panelcore",
			Leeway:     30 * time.Second,
			CookieName: "panel_route",
		},
		Audit: AuditConfig{
			RedisPrefix:         "pa",
			RecordSessionEvents: true,
			RestrictedRole:      string(RoleStaff),
			Mirror: audit.DispatcherConfig{
				BufferSize: 1024,
				DropIfFull: true,
			},
		},
		Export: ExportConfig{
			MaxRows: 10000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: logging.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LoginRateLimit:  10,
			LoginRateWindow: time.Minute,
		},
	}
}

// Validate checks the sections the Engine depends on.
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be > 0")
	}
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "", "strict", "lax", "none":
	default:
		return errors.New("session cookie_same_site must be strict, lax or none")
	}
	if strings.EqualFold(c.Session.CookieSameSite, "none") && !c.Session.CookieSecure {
		return errors.New("SameSite=None requires secure cookies")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie name must be set")
	}
	if c.Routing.Enabled() {
		if len(c.Routing.Secret) < 32 {
			return errors.New("routing secret must be at least 32 bytes")
		}
		if c.Routing.TTL <= 0 {
			return errors.New("routing TTL must be > 0")
		}
		if c.Routing.CookieName == "" || c.Routing.CookieName == c.Session.CookieName {
			return errors.New("routing cookie name must be set and differ from the session cookie")
		}
	}
	if c.Export.MaxRows <= 0 {
		return errors.New("export max_rows must be > 0")
	}
	if c.Audit.MirrorEnabled {
		if err := c.Audit.Mirror.Validate(); err != nil {
			return err
		}
	}
	if c.HTTP.LoginRateLimit < 0 {
		return errors.New("login rate limit must be >= 0")
	}
	return nil
}
