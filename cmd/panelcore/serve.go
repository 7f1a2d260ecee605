package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/panelcore"
	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/httpapi"
	"github.com/MrEthical07/panelcore/internal/directory"
	"github.com/MrEthical07/panelcore/internal/logging"
	"github.com/MrEthical07/panelcore/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := panelcore.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger := logging.Init(cfg.Logging)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg panelcore.Config, logger zerolog.Logger) error {
	if cfg.Directory.UsersFile == "" {
		return errors.New("directory.users_file is required")
	}
	dir, err := directory.Load(cfg.Directory.UsersFile)
	if err != nil {
		return err
	}
	logger.Info().Int("users", dir.Len()).Str("file", cfg.Directory.UsersFile).Msg("user directory loaded")

	builder := panelcore.New().
		WithConfig(cfg).
		WithUserProvider(dir).
		WithLogger(logger)

	// -------- STORES --------
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		sessions := session.NewRedisStore(client, cfg.Session.RedisPrefix)
		rtt, err := sessions.Ping(ctx)
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Dur("rtt", rtt).Msg("redis connected")

		builder.WithSessionStore(sessions)
		builder.WithAuditStore(audit.NewRedisStore(client, cfg.Audit.RedisPrefix))
	} else {
		logger.Warn().Msg("redis.addr empty, sessions are kept in memory")
	}

	if cfg.Postgres.DSN != "" {
		db, err := audit.OpenPostgres(ctx, audit.PostgresConfig{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		builder.WithAuditStore(audit.NewPostgresStore(db))
		logger.Info().Msg("postgres audit store enabled")
	}

	if cfg.Audit.MirrorEnabled {
		builder.WithAuditSink(audit.NewJSONWriterSink(os.Stdout))
	}

	// -------- METRICS --------
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		builder.WithMetricsRegisterer(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	engine, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		engine.Close()
		if dropped := engine.AuditDropped(); dropped > 0 {
			logger.Warn().Uint64("dropped", dropped).Msg("audit mirror dropped entries")
		}
	}()

	handler, err := httpapi.NewRouter(httpapi.Options{
		Engine:      engine,
		Credentials: dir,
		Logger:      logger,
		Metrics:     metricsHandler,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func shutdownTimeout(cfg panelcore.Config) time.Duration {
	if cfg.HTTP.ShutdownTimeout > 0 {
		return cfg.HTTP.ShutdownTimeout
	}
	return 10 * time.Second
}
