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

	"github.com/FerDeNetlab/auramarket/config"
	_ "github.com/FerDeNetlab/auramarket/docs"
	"github.com/FerDeNetlab/auramarket/internal/adapters/logger"
	"github.com/FerDeNetlab/auramarket/internal/adapters/messaging"
	"github.com/FerDeNetlab/auramarket/internal/adapters/remote"
	"github.com/FerDeNetlab/auramarket/internal/adapters/storage"
	"github.com/FerDeNetlab/auramarket/internal/api"
	"github.com/FerDeNetlab/auramarket/internal/api/handlers"
	"github.com/FerDeNetlab/auramarket/internal/domain/services"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
	"github.com/FerDeNetlab/auramarket/internal/security"
	"github.com/FerDeNetlab/auramarket/internal/worker"
	"github.com/FerDeNetlab/auramarket/pkg/auth"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// jwtTTL срок жизни токенов, выпускаемых JWTManager
const jwtTTL = 12 * time.Hour

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Сервис завершился с ошибкой", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Сервер корректно завершил работу")
}

func run(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort) error {
	store, err := storage.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Ошибка при закрытии хранилища", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	var reg prometheus.Registerer = prometheus.NewRegistry()
	gatherer := reg.(prometheus.Gatherer)
	if cfg.Metrics.Enabled {
		reg = prometheus.DefaultRegisterer
		gatherer = prometheus.DefaultGatherer
	}

	opts := []services.Option{
		services.WithOperationTimeout(cfg.Sync.OperationTimeout),
		services.WithHubName(cfg.Sync.HubName),
		services.WithMetrics(metrics.NewSyncMetrics(reg)),
	}

	var bus interfaces.MessagingPort
	if cfg.Kafka.Enabled {
		kafkaClient, err := messaging.NewKafkaMessaging(messaging.KafkaOptions{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Kafka.GroupID,
			ClientID:        cfg.AppName,
			AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
			SessionTimeout:  cfg.Kafka.SessionTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to init kafka: %w", err)
		}
		defer func() {
			if err := kafkaClient.Close(); err != nil {
				log.Error("Ошибка при закрытии Kafka", interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
		if err := kafkaClient.EnsureTopics(ctx, 3, 1, cfg.Kafka.CommandTopic, cfg.Kafka.ActivityTopic); err != nil {
			log.Warn("Не удалось создать топики", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		bus = kafkaClient
		opts = append(opts, services.WithEventPublisher(messaging.NewActivityPublisher(kafkaClient, cfg.Kafka.ActivityTopic)))
		log.Info("Система обмена сообщениями инициализирована")
	}

	fetcher, publisher := newRemote(cfg)
	orch := services.NewOrchestrator(store, fetcher, publisher, services.NewState(cfg.Sync.LogCapacity), log, opts...)
	if err := orch.Load(ctx); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	log.Info("Оркестратор инициализирован", interfaces.LogField{Key: "simulated", Value: cfg.Sync.Simulated})

	authPort, login, err := newAuth(ctx, cfg)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Hub:                orch,
		Logger:             log,
		Health:             store,
		CORSAllowedOrigins: cfg.Security.CORSAllowOrigins,
		RequestTimeout:     cfg.Server.RequestTimeout,
		Auth:               authPort,
		Login:              login,
	}
	if cfg.Metrics.Enabled {
		deps.HTTPMetrics = metrics.NewHTTPMetrics(reg)
		deps.MetricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		deps.MetricsPath = cfg.Metrics.Endpoint
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.SetupRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.Info("HTTP сервер остановлен")
		return nil
	})

	if bus != nil {
		dispatcher := worker.NewDispatcher(bus, cfg.Kafka.CommandTopic, orch, log, metrics.NewWorkerMetrics(reg))
		g.Go(func() error {
			return dispatcher.Run(gctx)
		})
	}

	return g.Wait()
}

func newRemote(cfg *config.Config) (remote.Fetcher, remote.Publisher) {
	if cfg.Sync.Simulated {
		sim := remote.NewSimulated(remote.SimulatedOptions{
			FetchDelay:   cfg.Sync.FetchDelay,
			PublishDelay: cfg.Sync.PublishDelay,
			FailureRate:  cfg.Sync.FailureRate,
		})
		return sim, sim
	}
	client := remote.NewHTTPClient(remote.HTTPOptions{
		HubURL:    cfg.Sync.HubURL,
		HubAPIKey: cfg.Sync.HubAPIKey,
		Timeout:   cfg.Sync.OperationTimeout,
		Secrets:   os.Getenv,
	})
	return client, client
}

// newAuth выбирает проверку токенов по auth.mode
func newAuth(ctx context.Context, cfg *config.Config) (interfaces.AuthPort, handlers.LoginProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthJWT:
		m, err := security.NewJWTManager(cfg.Auth.JWTSecret, jwtTTL, cfg.Auth.JWTIssuer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init jwt auth: %w", err)
		}
		return m, nil, nil
	case config.AuthOIDC:
		kc, err := auth.NewKeycloakClient(ctx, cfg.Auth.Keycloak.GetKeycloakConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init keycloak: %w", err)
		}
		return kc, kc, nil
	default:
		return nil, nil, nil
	}
}
