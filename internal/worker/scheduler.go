package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/adapters/messaging"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	pkgmodels "github.com/FerDeNetlab/auramarket/pkg/models"
	"github.com/google/uuid"
)

// SchedulerOptions интервалы команд, неположительный интервал отключает команду
type SchedulerOptions struct {
	Topic           string
	SyncInterval    time.Duration
	PublishInterval time.Duration
}

// Scheduler периодически кладет sync_all и publish_all в топик команд.
// Сам операции не выполняет.
type Scheduler struct {
	mp     interfaces.MessagingPort
	opts   SchedulerOptions
	logger interfaces.LoggerPort
	now    func() time.Time
}

func NewScheduler(mp interfaces.MessagingPort, opts SchedulerOptions, logger interfaces.LoggerPort) *Scheduler {
	if opts.Topic == "" {
		opts.Topic = messaging.DefaultCommandTopic
	}
	return &Scheduler{
		mp:     mp,
		opts:   opts,
		logger: logger.WithField("component", "scheduler"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run блокируется до отмены контекста
func (s *Scheduler) Run(ctx context.Context) error {
	syncTick := ticker(s.opts.SyncInterval)
	defer stop(syncTick)
	publishTick := ticker(s.opts.PublishInterval)
	defer stop(publishTick)

	s.logger.Info("Планировщик запущен",
		"sync_interval", s.opts.SyncInterval.String(),
		"publish_interval", s.opts.PublishInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Планировщик остановлен")
			return nil
		case <-tickC(syncTick):
			s.issueLogged(ctx, pkgmodels.CommandSyncAll)
		case <-tickC(publishTick):
			s.issueLogged(ctx, pkgmodels.CommandPublishAll)
		}
	}
}

// Issue публикует одну команду
func (s *Scheduler) Issue(ctx context.Context, cmdType pkgmodels.CommandType, providerID string) (*pkgmodels.HubCommand, error) {
	cmd := &pkgmodels.HubCommand{
		ID:          uuid.New().String(),
		Type:        cmdType,
		ProviderID:  providerID,
		RequestedBy: "scheduler",
		RequestedAt: s.now(),
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	key := providerID
	if key == "" {
		key = string(cmdType)
	}
	if err := messaging.PublishJSON(ctx, s.mp, s.opts.Topic, key, messaging.HubCommandIssuedEvent, cmd); err != nil {
		return nil, fmt.Errorf("failed to issue %s command: %w", cmdType, err)
	}
	return cmd, nil
}

func (s *Scheduler) issueLogged(ctx context.Context, cmdType pkgmodels.CommandType) {
	cmd, err := s.Issue(ctx, cmdType, "")
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Не удалось отправить команду", "command_type", cmdType, "error", err.Error())
		return
	}
	s.logger.InfoWithContext(ctx, "Команда отправлена", "command_type", cmdType, "command_id", cmd.ID)
}

func ticker(d time.Duration) *time.Ticker {
	if d <= 0 {
		return nil
	}
	return time.NewTicker(d)
}

func stop(t *time.Ticker) {
	if t != nil {
		t.Stop()
	}
}

// tickC nil-канал для отключенной команды никогда не срабатывает
func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
