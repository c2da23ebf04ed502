package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credbridge/internal/agency"
	"credbridge/internal/connection"
	connMetrics "credbridge/internal/connection/metrics"
	connService "credbridge/internal/connection/service"
	connStore "credbridge/internal/connection/store"
	"credbridge/internal/credtypes"
	"credbridge/internal/events"
	"credbridge/internal/notify"
	"credbridge/internal/platform/config"
	"credbridge/internal/platform/kafka"
	"credbridge/internal/platform/metrics"
	"credbridge/internal/platform/middleware"
	"credbridge/internal/platform/postgres"
	"credbridge/internal/platform/redis"
	"credbridge/internal/proof"
	proofMetrics "credbridge/internal/proof/metrics"
	proofService "credbridge/internal/proof/service"
	proofStore "credbridge/internal/proof/store"
	"credbridge/internal/webhook"
	"credbridge/pkg/platform/httputil"
)

// invitationLabel is shown in the holder's wallet when pairing.
const invitationLabel = "credbridge verifier"

type app struct {
	router  http.Handler
	closers []func() error
	checks  map[string]func(context.Context) error
}

// health pings every configured backing store. Any failure turns the
// response into a 503 naming the failing dependency.
func (a *app) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range a.checks {
		if err := check(r.Context()); err != nil {
			status[name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	httputil.WriteJSON(w, code, status)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// buildApp wires stores, services and handlers. Redis, Postgres and Kafka are
// used only when configured; otherwise in-memory stores and log publishing
// take their place.
func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{checks: map[string]func(context.Context) error{}}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	credTypes, err := credtypes.LoadRegistry(cfg.CredentialTypesFile)
	if err != nil {
		return fail(err)
	}
	defaultAttributes, err := credtypes.LoadDescriptors(cfg.ProofAttributesFile)
	if err != nil {
		return fail(err)
	}
	if config.IsPlaceholder(cfg.Server.WebhookAPIKey) {
		log.Warn("webhook api key not configured; every webhook delivery will be rejected")
	}

	var sessions connService.Store = connStore.NewInMemoryStore()
	rdb, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return fail(fmt.Errorf("connect redis: %w", err))
	}
	if rdb != nil {
		sessions = connStore.NewRedisStore(rdb)
		a.closers = append(a.closers, rdb.Close)
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("session store: redis")
	}

	var proofs proofService.Store = proofStore.NewInMemoryStore()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return fail(fmt.Errorf("connect postgres: %w", err))
	}
	if db != nil {
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db.PingContext
		pg := proofStore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		proofs = pg
		log.Info("proof store: postgres")
	}

	var publisher events.Publisher = events.NewLogPublisher(log)
	kc, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return fail(fmt.Errorf("connect kafka: %w", err))
	}
	if kc != nil {
		a.closers = append(a.closers, func() error {
			kc.Close()
			return nil
		})
		publisher = events.NewKafkaPublisher(kc, cfg.Kafka.Topic, log)
		log.Info("platform events: kafka", "topic", cfg.Kafka.Topic)
	}

	platform := agency.New(cfg.Platform)
	httpMetrics := metrics.New()

	connSvc := connection.NewService(sessions,
		connService.WithLogger(log),
		connService.WithMetrics(connMetrics.New()),
		connService.WithTTL(cfg.Session.TTL),
		connService.WithInvitationIssuer(platform, cfg.Platform.OrgID, invitationLabel),
	)
	proofSvc := proof.NewService(proofs, platform,
		proofService.WithLogger(log),
		proofService.WithMetrics(proofMetrics.New()),
		proofService.WithDefaultOrg(cfg.Platform.OrgID),
		proofService.WithAttributeRegistry(credTypes, defaultAttributes),
	)
	hub := notify.NewRegistry(notify.WithLogger(log), notify.WithMetrics(notify.NewMetrics()))

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.Handler())

	connection.NewHandler(connSvc, proofStatusReader{proofs: proofSvc}, log, httpMetrics).Register(r)
	proof.NewHandler(proofSvc, log, httpMetrics).Register(r)
	notify.NewHandler(hub, connSvc, log, cfg.Server.AllowedOrigins).Register(r)
	webhook.New(connSvc, proofSvc, hub, cfg.Server.WebhookAPIKey, log,
		webhook.WithMetrics(webhook.NewMetrics()),
		webhook.WithHTTPMetrics(httpMetrics),
		webhook.WithPublisher(publisher),
	).Register(r)

	a.router = r
	return a, nil
}
