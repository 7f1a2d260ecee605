package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/panelcore"
	"github.com/MrEthical07/panelcore/middleware"
	"github.com/MrEthical07/panelcore/permission"
)

// Options wires a router. Engine and Credentials are required.
type Options struct {
	Engine      *panelcore.Engine
	Credentials panelcore.CredentialVerifier
	Logger      zerolog.Logger
	// Metrics is mounted at Metrics.Path when non-nil.
	Metrics http.Handler
}

type server struct {
	engine *panelcore.Engine
	creds  panelcore.CredentialVerifier
	cfg    panelcore.Config
	logger zerolog.Logger
}

// NewRouter returns the HTTP API.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Engine == nil {
		return nil, errors.New("httpapi: engine required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("httpapi: credential verifier required")
	}

	s := &server{
		engine: opts.Engine,
		creds:  opts.Credentials,
		cfg:    opts.Engine.Config(),
		logger: opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestContext)

	if opts.Metrics != nil && s.cfg.Metrics.Path != "" {
		r.Method(http.MethodGet, s.cfg.Metrics.Path, opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.cfg.HTTP.LoginRateLimit > 0 {
				r.Use(httprate.LimitByIP(s.cfg.HTTP.LoginRateLimit, s.cfg.HTTP.LoginRateWindow))
			}
			r.Post("/login", s.login)
		})
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(s.engine, s.cfg.Session.CookieName))
			if s.cfg.Routing.Enabled() {
				r.Use(middleware.Advisory(s.engine, s.cfg.Routing.CookieName))
			}
			r.Get("/me", s.me)
		})
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireSession(s.engine, s.cfg.Session.CookieName))
		r.Use(middleware.RequirePermission(s.engine, permission.ModuleAudit, permission.ActionRead))
		r.Get("/logs", s.auditLogs)
		r.Get("/export", s.auditExport)
	})

	return r, nil
}
