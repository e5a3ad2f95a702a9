package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FerDeNetlab/auramarket/config"
	"github.com/FerDeNetlab/auramarket/internal/adapters/logger"
	"github.com/FerDeNetlab/auramarket/internal/adapters/messaging"
	"github.com/FerDeNetlab/auramarket/internal/worker"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	pkgmodels "github.com/FerDeNetlab/auramarket/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

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

	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	if !cfg.Kafka.Enabled {
		log.Fatal("Воркеру нужна Kafka, включите kafka.enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Воркер завершился с ошибкой", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Воркер корректно завершил работу")
}

func run(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort) error {
	messagingClient, err := messaging.NewKafkaMessaging(messaging.KafkaOptions{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID + "-worker",
		ClientID:        cfg.AppName + "-worker",
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		SessionTimeout:  cfg.Kafka.SessionTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to init kafka: %w", err)
	}
	defer func() {
		if err := messagingClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Kafka", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()
	if err := messagingClient.EnsureTopics(ctx, 3, 1, cfg.Kafka.CommandTopic, cfg.Kafka.ActivityTopic); err != nil {
		log.Warn("Не удалось создать топики", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Система обмена сообщениями инициализирована")

	scheduler := worker.NewScheduler(messagingClient, worker.SchedulerOptions{
		Topic:           cfg.Kafka.CommandTopic,
		SyncInterval:    cfg.Scheduler.SyncInterval,
		PublishInterval: cfg.Scheduler.PublishInterval,
	}, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		return watchActivity(gctx, messagingClient, cfg.Kafka.ActivityTopic, log)
	})

	if cfg.Metrics.Enabled {
		server := newMetricsServer(cfg)
		g.Go(func() error {
			log.Info("Запуск HTTP сервера для метрик", interfaces.LogField{Key: "addr", Value: server.Addr})
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	log.Info("Воркер запущен и готов к обработке сообщений")
	return g.Wait()
}

func newMetricsServer(cfg *config.Config) *http.Server {
	r := chi.NewRouter()
	r.Handle(cfg.Metrics.Endpoint, promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// watchActivity пишет события журнала в лог воркера
func watchActivity(ctx context.Context, mp interfaces.MessagingPort, topic string, log interfaces.LoggerPort) error {
	handler := func(ctx context.Context, msg *interfaces.Message) error {
		switch msg.Headers[messaging.HeaderEventType] {
		case messaging.HubStatusChangedEvent:
			var event pkgmodels.HubStatusEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.WarnWithContext(ctx, "Ошибка декодирования события", "message_id", msg.ID, "error", err.Error())
				return nil
			}
			log.InfoWithContext(ctx, "Статус хаба изменен", "hub", event.Hub, "status", event.Status)
		default:
			var event pkgmodels.ActivityEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.WarnWithContext(ctx, "Ошибка декодирования события", "message_id", msg.ID, "error", err.Error())
				return nil
			}
			log.InfoWithContext(ctx, "Активность",
				"provider_id", event.ProviderID,
				"action", event.Action,
				"status", event.Status,
				"products_affected", event.ProductsAffected,
				"message", event.Message,
			)
		}
		return nil
	}

	unsubscribe, err := mp.Subscribe(ctx, topic, handler)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	log.Info("Подписка на журнал активности установлена", interfaces.LogField{Key: "topic", Value: topic})

	<-ctx.Done()
	log.Info("Отмена подписки на журнал активности")
	return unsubscribe()
}
