package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/internal/domain/services"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	pkgmodels "github.com/FerDeNetlab/auramarket/pkg/models"
)

// Статусы обработки сообщения для метрик
const (
	statusSuccess  = "success"
	statusInvalid  = "invalid"
	statusRejected = "rejected"
	statusError    = "error"
)

// Executor операции оркестратора, доступные через команды
type Executor interface {
	SyncProvider(ctx context.Context, providerID string) error
	UploadToHub(ctx context.Context, providerID string) error
	SyncAll(ctx context.Context) services.BulkResult
	PublishAll(ctx context.Context) services.BulkResult
	Refresh(ctx context.Context) error
}

// Dispatcher читает команды из топика и выполняет их на оркестраторе
type Dispatcher struct {
	mp      interfaces.MessagingPort
	topic   string
	exec    Executor
	logger  interfaces.LoggerPort
	metrics *metrics.WorkerMetrics
}

func NewDispatcher(
	mp interfaces.MessagingPort,
	topic string,
	exec Executor,
	logger interfaces.LoggerPort,
	m *metrics.WorkerMetrics,
) *Dispatcher {
	return &Dispatcher{
		mp:      mp,
		topic:   topic,
		exec:    exec,
		logger:  logger.WithField("component", "dispatcher"),
		metrics: m,
	}
}

// Run подписывается на топик команд и блокируется до отмены контекста
func (d *Dispatcher) Run(ctx context.Context) error {
	unsubscribe, err := d.mp.Subscribe(ctx, d.topic, d.Handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", d.topic, err)
	}
	d.logger.Info("Подписка на команды установлена", "topic", d.topic)

	<-ctx.Done()
	d.logger.Info("Отмена подписки на команды", "topic", d.topic)
	if err := unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", d.topic, err)
	}
	return nil
}

// Handle обрабатывает одно сообщение. Невалидные команды и отказы по
// предусловию не возвращают ошибку: повтор не изменит результат.
func (d *Dispatcher) Handle(ctx context.Context, msg *interfaces.Message) error {
	start := time.Now()
	if d.metrics != nil {
		d.metrics.Active.Inc()
		defer d.metrics.Active.Dec()
	}

	cmd, err := pkgmodels.DecodeHubCommand(msg.Value)
	if err != nil {
		d.logger.ErrorWithContext(ctx, "Ошибка декодирования команды",
			"message_id", msg.ID,
			"error", err.Error(),
		)
		d.observe(msg.Topic, statusInvalid, start)
		return nil
	}

	log := d.logger.WithFields(
		interfaces.LogField{Key: "command_id", Value: cmd.ID},
		interfaces.LogField{Key: "command_type", Value: cmd.Type},
	)
	log.InfoWithContext(ctx, "Получена команда", "provider_id", cmd.ProviderID)

	err = d.execute(ctx, cmd)
	switch {
	case err == nil:
		d.observe(msg.Topic, statusSuccess, start)
		log.InfoWithContext(ctx, "Команда успешно обработана", "duration", time.Since(start).Seconds())
		return nil
	case models.IsPreconditionError(err):
		d.observe(msg.Topic, statusRejected, start)
		log.WarnWithContext(ctx, "Команда отклонена", "error", err.Error())
		return nil
	default:
		d.observe(msg.Topic, statusError, start)
		log.ErrorWithContext(ctx, "Ошибка обработки команды", "error", err.Error())
		return err
	}
}

func (d *Dispatcher) execute(ctx context.Context, cmd *pkgmodels.HubCommand) error {
	switch cmd.Type {
	case pkgmodels.CommandSyncProvider:
		return d.exec.SyncProvider(ctx, cmd.ProviderID)
	case pkgmodels.CommandUploadProvider:
		return d.exec.UploadToHub(ctx, cmd.ProviderID)
	case pkgmodels.CommandSyncAll:
		d.logBulk(ctx, d.exec.SyncAll(ctx))
		return nil
	case pkgmodels.CommandPublishAll:
		d.logBulk(ctx, d.exec.PublishAll(ctx))
		return nil
	case pkgmodels.CommandRefresh:
		return d.exec.Refresh(ctx)
	}
	return fmt.Errorf("unsupported command type %q", cmd.Type)
}

func (d *Dispatcher) logBulk(ctx context.Context, result services.BulkResult) {
	d.logger.InfoWithContext(ctx, "Массовая команда выполнена",
		"action", result.Action,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
}

func (d *Dispatcher) observe(topic, status string, start time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.Processed.WithLabelValues(topic, status).Inc()
	d.metrics.Duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
}
