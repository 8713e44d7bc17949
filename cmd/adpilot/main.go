package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"adpilot/internal/adapter/audit"
	"adpilot/internal/adapter/capability"
	"adpilot/internal/adapter/channel"
	"adpilot/internal/adapter/classifier"
	"adpilot/internal/adapter/directory"
	"adpilot/internal/adapter/transport"
	"adpilot/internal/domain"
	"adpilot/internal/infra/config"
	"adpilot/internal/infra/logger"
	"adpilot/internal/infra/metrics"
	"adpilot/internal/infra/tracer"
	"adpilot/internal/usecase"
	"adpilot/internal/usecase/eventbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("ADPILOT_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Event bus & metrics
	bus := eventbus.New(log)
	defer bus.Close()

	registry := prometheus.NewRegistry()
	mtr := metrics.New(registry)
	wireMetrics(bus, mtr)

	// 4. Identity directory
	dir, err := directory.NewStatic(cfg.Directory)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}

	// 5. Audit trail: durable sink, alert channels, retention
	sink, sinkCleanup, retention, err := buildAuditSink(cfg.Audit, log)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer sinkCleanup()

	alerters, err := buildAlerters(cfg.Audit, log)
	if err != nil {
		return fmt.Errorf("alerters: %w", err)
	}
	auditLog := usecase.NewAuditLog(sink, alerters, bus, log)
	defer auditLog.Wait()

	if retention != nil {
		if err := retention.Start(); err != nil {
			return fmt.Errorf("audit retention: %w", err)
		}
		defer retention.Stop()
	}

	// 6. Authorization gate
	lockouts := usecase.NewLockoutTracker(
		cfg.Security.MaxFailedAttempts,
		cfg.Security.FailureWindowOrDefault(),
		cfg.Security.LockoutDurationOrDefault(),
		log,
	)
	lockouts.SetOnLockout(func(identity domain.Identity, until time.Time) {
		mtr.Lockout()
		bus.Publish(context.Background(), domain.Event{
			Type:     domain.EventIdentityLocked,
			Identity: identity,
			Detail:   map[string]string{"until": until.UTC().Format(time.RFC3339)},
			At:       time.Now().UTC(),
		})
	})

	limiter := usecase.NewRateLimiter(roleCeilings(cfg.Security.RateLimits))
	gate := usecase.NewGate(dir, lockouts, limiter, auditLog, bus, log)

	// 7. Routing & capabilities
	router := usecase.NewIntentRouter(classifier.NewKeyword(), domain.TargetAdvertisingMetrics, log)

	capTimeout := cfg.Capabilities.TimeoutOrDefault()
	capabilities := []domain.Capability{
		capability.NewMetrics(cfg.Capabilities.MetricsURL, capTimeout, log),
		capability.NewCRM(cfg.Capabilities.CRMURL, capTimeout, log),
	}

	// 8. Delivery: CRM transport behind a circuit breaker
	lc := transport.NewLeadConnector(cfg.Transport.BaseURL, cfg.Transport.APIToken, cfg.Transport.APIVersion)
	guarded := transport.NewBreakerTransport(lc, cfg.Transport.Breaker, log)
	delivery := usecase.NewDeliveryAgent(guarded, cfg.Delivery.MaxAttempts, cfg.Delivery.BackoffBaseOrDefault(), log)

	// 9. Controller & webhook server
	controller := usecase.NewController(gate, router, capabilities, delivery, bus, log)
	server := channel.NewServer(ctx, cfg.Server.Addr, cfg.Server.RequestsPerMin, cfg.Server.Burst, controller, registry, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("adpilot started",
		"addr", cfg.Server.Addr,
		"directory_entries", dir.Len(),
		"alert_channels", len(alerters),
		"audit_sink", sink != nil,
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	log.Info("adpilot stopped")
	return nil
}

// wireMetrics updates counters from lifecycle events, keeping the decision
// path free of metrics calls.
func wireMetrics(bus domain.EventBus, mtr *metrics.Metrics) {
	bus.Subscribe(domain.EventAuthAllowed, func(_ context.Context, _ domain.Event) {
		mtr.AuthDecision("allowed")
	})
	bus.Subscribe(domain.EventAuthDenied, func(_ context.Context, e domain.Event) {
		mtr.AuthDecision("denied")
		if strings.HasPrefix(e.Detail["detail"], "rate limit exceeded") {
			mtr.RateLimitDenial()
		}
	})
	bus.Subscribe(domain.EventAuthBlocked, func(_ context.Context, _ domain.Event) {
		mtr.AuthDecision("blocked")
	})
	bus.Subscribe(domain.EventDeliverySent, func(_ context.Context, _ domain.Event) {
		mtr.DeliveryAttempt("success")
	})
	bus.Subscribe(domain.EventDeliveryFailed, func(_ context.Context, _ domain.Event) {
		mtr.DeliveryAttempt("failure")
	})
	bus.Subscribe(domain.EventAlertRaised, func(_ context.Context, e domain.Event) {
		mtr.AlertDispatched(e.Detail["severity"])
	})
}

// buildAuditSink assembles the durable audit pipeline: SQLite (with the
// daily retention job) when configured, otherwise JSONL, otherwise none.
// The sink is wrapped with a bounded async writer either way.
func buildAuditSink(cfg config.AuditConfig, log *slog.Logger) (domain.AuditSink, func(), *audit.RetentionJob, error) {
	noop := func() {}

	switch {
	case cfg.SQLitePath != "":
		sqlite, err := audit.NewSQLiteSink(cfg.SQLitePath)
		if err != nil {
			return nil, noop, nil, err
		}
		async := audit.NewAsyncSink(sqlite, cfg.QueueSize, log)
		retention := audit.NewRetentionJob(sqlite, cfg.RetentionDays, log)
		return async, func() { async.Close() }, retention, nil

	case cfg.FilePath != "":
		file, err := audit.NewFileSink(cfg.FilePath)
		if err != nil {
			return nil, noop, nil, err
		}
		async := audit.NewAsyncSink(file, cfg.QueueSize, log)
		return async, func() { async.Close() }, nil, nil

	default:
		return nil, noop, nil, nil
	}
}

func buildAlerters(cfg config.AuditConfig, log *slog.Logger) ([]domain.Alerter, error) {
	var alerters []domain.Alerter
	for _, name := range cfg.AlertChannels {
		switch name {
		case "log":
			alerters = append(alerters, audit.NewLogAlerter(log))
		case "slack":
			if cfg.SlackWebhook == "" {
				log.Warn("slack alert channel configured but no webhook provided, skipping")
				continue
			}
			alerters = append(alerters, audit.NewSlackAlerter(cfg.SlackWebhook))
		default:
			return nil, fmt.Errorf("unknown alert channel: %s", name)
		}
	}
	return alerters, nil
}

func roleCeilings(raw map[string]config.RateCeiling) map[domain.Role]usecase.Ceiling {
	out := make(map[domain.Role]usecase.Ceiling, len(raw))
	for role, c := range raw {
		out[domain.Role(role)] = usecase.Ceiling{PerMinute: c.PerMinute, PerHour: c.PerHour}
	}
	return out
}
