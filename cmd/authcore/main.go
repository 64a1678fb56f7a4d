package main

import (
	"context"
	"log/slog"
	"os"

	"authcore/config"
	"authcore/internal/delivery"
	"authcore/internal/delivery/api"
	"authcore/internal/delivery/api/middleware"
	"authcore/internal/delivery/api/router/handler"
	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/errors"
	"authcore/internal/infra/auth"
	"authcore/internal/infra/auth/firebase"
	"authcore/internal/infra/auth/google"
	logs "authcore/internal/infra/log"
	"authcore/internal/infra/metrics"
	"authcore/internal/infra/persistence/memory"
	"authcore/internal/infra/persistence/postgres"
	"authcore/internal/infra/pubsub"
	"authcore/internal/usecase/impl"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			newMetricsRegistry,
		),
		pubsub.Module,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			newTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTService,
			newVerifierRegistry,
			newAuthMetrics,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

type persistenceParams struct {
	fx.In
	fx.Lifecycle

	Config     *config.Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// newTransactionManager selects the storage backend named by persistence.driver.
func newTransactionManager(params persistenceParams) (repository.TransactionManager, error) {
	if params.Config.Persistence.Driver == config.DriverMemory {
		params.Logger.Warn("Using in-memory persistence, accounts and sessions are lost on restart")

		return memory.NewTransactionManager(memory.NewStore()), nil
	}

	db, err := postgres.New(postgres.Params{
		Lifecycle:  params.Lifecycle,
		Config:     params.Config,
		Logger:     params.Logger,
		Registerer: params.Registerer,
	})
	if err != nil {
		return nil, err
	}

	return postgres.NewTransactionManager(db), nil
}

type verifierParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// newVerifierRegistry builds a verifier for every configured identity provider.
func newVerifierRegistry(params verifierParams) (*service.VerifierRegistry, error) {
	identity := params.Config.Identity

	var verifiers []service.IdentityVerifier
	if identity.GoogleEnabled() {
		verifier, err := google.NewVerifier(params.Config, params.Logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Google verifier")
		}
		verifiers = append(verifiers, verifier)
	}
	if identity.FirebaseEnabled() {
		verifier, err := firebase.NewVerifier(params.Ctx, params.Config, params.Logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Firebase verifier")
		}
		verifiers = append(verifiers, verifier)
	}

	defaultProvider, err := entity.ParseProviderType(identity.DefaultProvider)
	if err != nil {
		return nil, errors.Wrap(err, "invalid default identity provider")
	}

	return service.NewVerifierRegistry(defaultProvider, verifiers...)
}

type metricsRegistry struct {
	fx.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// newMetricsRegistry creates the registry served on the metrics path, with the
// runtime and process collectors preinstalled.
func newMetricsRegistry() metricsRegistry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return metricsRegistry{Registerer: registry, Gatherer: registry}
}

func newAuthMetrics(registerer prometheus.Registerer) service.AuthMetrics {
	return metrics.NewCollector(registerer)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
