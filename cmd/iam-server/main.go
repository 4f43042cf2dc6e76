package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/indigo-iam/iam-service/internal/account"
	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/authz/policy"
	"github.com/indigo-iam/iam-service/internal/cache"
	"github.com/indigo-iam/iam-service/internal/clients"
	"github.com/indigo-iam/iam-service/internal/config"
	httpserver "github.com/indigo-iam/iam-service/internal/http"
	"github.com/indigo-iam/iam-service/internal/introspect"
	"github.com/indigo-iam/iam-service/internal/jwt"
	"github.com/indigo-iam/iam-service/internal/notify"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/scim"
	"github.com/indigo-iam/iam-service/internal/store/adapters/mem"
	"github.com/indigo-iam/iam-service/internal/store/adapters/pg"
	"github.com/indigo-iam/iam-service/internal/store/core"
	"github.com/indigo-iam/iam-service/internal/tokens"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "iam-server:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", envOr("IAM_CONFIG", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       envOr("LOG_LEVEL", "info"),
		ServiceName: "iam-server",
	})
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cacheClient, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.CacheDefaultTTL(),
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	issuer, err := jwt.NewIssuer(cfg.JWT.Issuer, cfg.AccessTTL())
	if err != nil {
		return fmt.Errorf("jwt issuer: %w", err)
	}

	sink := buildAuditSink(cfg)

	pdp := policy.NewPDP(st.Policies(), st.Accounts())
	deps := httpserver.Deps{
		Store:              st,
		Policies:           policy.NewService(st.Policies(), sink),
		PDP:                pdp,
		Tokens:             tokens.NewService(st.Tokens(), st.Clients(), pdp, issuer, sink),
		Accounts:           account.NewService(st.Accounts(), sink),
		Clients:            clients.NewService(st.Clients(), pdp),
		SCIM:               scim.NewExecutor(st.Accounts(), sink, cfg.SCIM.BulkMaxOperations),
		Introspect:         introspect.NewService(st.Tokens(), issuer, cacheClient, cfg.AccessTTL()),
		AdminAPIKey:        cfg.Server.AdminAPIKey,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}

	metricsHandler, err := httpserver.RegisterMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	deps.Metrics = metricsHandler

	srv := httpserver.NewServer(cfg.Server.Addr, httpserver.NewRouter(deps))

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			logger.Component("main"),
			logger.String("addr", cfg.Server.Addr),
			logger.String("storage", cfg.Storage.Driver),
			logger.String("cache", cfg.Cache.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", logger.Component("main"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (core.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		lifetime, _ := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		st, err := pg.Open(ctx, pg.Config{
			DSN:             cfg.Storage.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		n, err := st.Migrate(ctx)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if n > 0 {
			logger.L().Info("migrations applied",
				logger.Component("main"),
				logger.Int("count", n),
			)
		}
		return st, nil
	case "memory":
		return mem.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildAuditSink wires the log sink plus, when SMTP and recipients are
// configured, mail delivery for account and security events.
func buildAuditSink(cfg *config.Config) audit.Sink {
	sinks := audit.Fanout{audit.LoggerSink{}}
	if cfg.SMTP.Host != "" && len(cfg.Notify.AdminRecipients) > 0 {
		sender := notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		sender.TLSMode = cfg.SMTP.TLS
		sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		sinks = append(sinks, notify.NewMailSink(sender, cfg.Notify.AdminRecipients))
	}
	return sinks
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
