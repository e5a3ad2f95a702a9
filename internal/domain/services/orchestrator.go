package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/adapters/remote"
	"github.com/FerDeNetlab/auramarket/internal/adapters/storage"
	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/internal/domain/stats"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/google/uuid"
)

// Тексты записей журнала, их видит оператор панели
const (
	msgSyncStarted     = "Iniciando sincronización..."
	msgSyncSucceeded   = "Sincronización completada exitosamente"
	msgSyncFailed      = "Error de sincronización: %s"
	msgSyncInterrupted = "Sincronización interrumpida por reinicio del servicio"
	msgUploadStarted   = "Subiendo productos a %s..."
	msgUploadSucceeded = "Productos subidos a %s exitosamente"
	msgUploadFailed    = "Error al subir productos a %s: %s"
)

// Итоги операций для метрик
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// OperationResult итог операции над одним поставщиком в массовом запуске
type OperationResult struct {
	ProviderID string                  `json:"provider_id"`
	Status     models.ConnectionStatus `json:"status"`
	Skipped    bool                    `json:"skipped,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// BulkResult итог SyncAll или PublishAll, результаты в порядке запуска
type BulkResult struct {
	Action    models.SyncAction `json:"action"`
	Results   []OperationResult `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
}

// Orchestrator единственный, кто меняет статусы подключений.
// Скачивает каталоги поставщиков, публикует их в хаб и ведет журнал.
type Orchestrator struct {
	store     storage.Store
	fetcher   remote.Fetcher
	publisher remote.Publisher
	state     *State
	logger    interfaces.LoggerPort
	metrics   *metrics.SyncMetrics
	events    EventPublisher
	now       func() time.Time
	timeout   time.Duration
	hubName   string
}

func NewOrchestrator(
	store storage.Store,
	fetcher remote.Fetcher,
	publisher remote.Publisher,
	state *State,
	logger interfaces.LoggerPort,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		state:     state,
		logger:    logger.WithField("component", "orchestrator"),
		now:       func() time.Time { return time.Now().UTC() },
		timeout:   DefaultOperationTimeout,
		hubName:   DefaultHubName,
	}
	for _, opt := range opts {
		opt(o)
	}
	state.setHubName(o.hubName)
	return o
}

// Load загружает состояние из хранилища при старте. Поставщики, оставшиеся
// в syncing после падения, переводятся в error: после перезапуска операций в полете нет.
func (o *Orchestrator) Load(ctx context.Context) error {
	providers, err := o.store.ListProviders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load providers: %w", err)
	}
	marketplaces, err := o.store.ListMarketplaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to load marketplaces: %w", err)
	}
	logs, err := o.store.ListRecentLogs(ctx, "", o.state.log.Cap())
	if err != nil {
		return fmt.Errorf("failed to load activity log: %w", err)
	}
	o.state.log.Reset(logs)

	for i := range providers {
		p := &providers[i]
		if p.Status != models.StatusSyncing {
			continue
		}
		o.logger.Warn("Поставщик остался в статусе syncing, сбрасываем в error", "provider_id", p.ID)
		if err := o.store.UpdateProviderStatus(ctx, p.ID, models.StatusError); err != nil {
			o.logger.Error("Не удалось сохранить статус поставщика", "provider_id", p.ID, "error", err.Error())
		}
		p.Status = models.StatusError
		_, _ = o.appendLog(ctx, models.NewSyncLogEntry{
			ProviderID: p.ID,
			Action:     models.ActionDownload,
			Outcome:    models.OutcomeError,
			Message:    msgSyncInterrupted,
		})
	}

	o.state.setProviders(providers)
	o.state.setMarketplaces(marketplaces)

	o.logger.Info("Состояние загружено",
		"providers", len(providers),
		"marketplaces", len(marketplaces),
		"log_entries", o.state.log.Len(),
	)
	return nil
}

// Refresh перечитывает поставщиков, маркетплейсы и журнал из хранилища
func (o *Orchestrator) Refresh(ctx context.Context) error {
	if err := o.refreshProviders(ctx); err != nil {
		return err
	}
	marketplaces, err := o.store.ListMarketplaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh marketplaces: %w", err)
	}
	o.state.setMarketplaces(marketplaces)

	logs, err := o.store.ListRecentLogs(ctx, "", o.state.log.Cap())
	if err != nil {
		return fmt.Errorf("failed to refresh activity log: %w", err)
	}
	o.state.log.Reset(logs)
	return nil
}

func (o *Orchestrator) refreshProviders(ctx context.Context) error {
	providers, err := o.store.ListProviders(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh providers: %w", err)
	}
	o.state.setProviders(providers)
	return nil
}

// SyncProvider скачивает каталог поставщика. Возвращает только PreconditionError:
// сбои хранилища и удаленного API видны через статус error и запись журнала.
func (o *Orchestrator) SyncProvider(ctx context.Context, providerID string) error {
	provider, err := o.state.beginProvider(providerID, o.now())
	if err != nil {
		return o.reject(ctx, models.ActionDownload, err)
	}

	done := o.metrics.Started(string(models.ActionDownload))
	// операция доводится до конца, даже если вызывающий ушел
	opCtx := context.WithoutCancel(ctx)
	log := o.logger.WithField("provider_id", providerID)
	log.InfoWithContext(ctx, "Синхронизация поставщика начата")

	final, count, err := o.download(ctx, opCtx, provider)
	if err != nil {
		log.ErrorWithContext(ctx, "Синхронизация поставщика завершилась ошибкой", "error", err.Error())

		final = provider
		final.Status = models.StatusError
		final.UpdatedAt = laterOf(o.now(), final.CreatedAt)
		if serr := o.store.UpdateProviderStatus(opCtx, providerID, models.StatusError); serr != nil {
			log.ErrorWithContext(ctx, "Не удалось сохранить статус error", "error", serr.Error())
		}
		o.state.finishProvider(final)

		_, _ = o.appendLog(opCtx, models.NewSyncLogEntry{
			ProviderID: providerID,
			Action:     models.ActionDownload,
			Outcome:    models.OutcomeError,
			Message:    fmt.Sprintf(msgSyncFailed, describe(err)),
		})
		done(outcomeError, 0)
	} else {
		o.state.finishProvider(final)
		_, _ = o.appendLog(opCtx, models.NewSyncLogEntry{
			ProviderID:       providerID,
			Action:           models.ActionDownload,
			Outcome:          models.OutcomeSuccess,
			Message:          msgSyncSucceeded,
			ProductsAffected: count,
		})
		log.InfoWithContext(ctx, "Синхронизация поставщика завершена", "products", count)
		done(outcomeSuccess, count)
	}

	// счетчики берем из хранилища, а не из локально посчитанной дельты
	if err := o.refreshProviders(opCtx); err != nil {
		log.WarnWithContext(ctx, "Не удалось обновить поставщиков из хранилища", "error", err.Error())
	}
	o.state.settleProvider(providerID, final.Status)
	return nil
}

// download шаги 2-4 пути скачивания, любая ошибка прерывает операцию
func (o *Orchestrator) download(ctx, opCtx context.Context, provider models.Provider) (models.Provider, int, error) {
	if err := o.store.UpdateProviderStatus(opCtx, provider.ID, models.StatusSyncing); err != nil {
		return models.Provider{}, 0, err
	}
	if _, err := o.appendLog(opCtx, models.NewSyncLogEntry{
		ProviderID: provider.ID,
		Action:     models.ActionDownload,
		Outcome:    models.OutcomePending,
		Message:    msgSyncStarted,
	}); err != nil {
		return models.Provider{}, 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result, err := o.fetcher.FetchFromProvider(callCtx, provider)
	if err != nil {
		return models.Provider{}, 0, remoteFailure(callCtx, remote.OpFetch, err)
	}
	if result.Count < 0 {
		return models.Provider{}, 0, models.NewRemoteError(models.RemoteUnknown, remote.OpFetch,
			fmt.Errorf("negative product count %d", result.Count))
	}

	// товары и счетчик пишутся вместе, при ошибке в хранилище не остается ничего
	updated, err := o.store.CompleteProviderSync(opCtx, provider.ID, result.Count, o.now(), result.Products)
	if err != nil {
		return models.Provider{}, 0, err
	}
	return *updated, result.Count, nil
}

// UploadToHub публикует неопубликованные товары поставщика в хаб.
// Меняется только статус хаба, статус поставщика не трогается.
func (o *Orchestrator) UploadToHub(ctx context.Context, providerID string) error {
	if _, ok := o.state.provider(providerID); !ok {
		return o.reject(ctx, models.ActionUpload,
			&models.PreconditionError{Kind: models.EntityNotFound, EntityID: providerID})
	}
	hub, ok := o.state.beginHub(o.now())
	if !ok {
		return o.reject(ctx, models.ActionUpload,
			&models.PreconditionError{Kind: models.AlreadyInFlight, EntityID: o.hubName})
	}

	done := o.metrics.Started(string(models.ActionUpload))
	opCtx := context.WithoutCancel(ctx)
	log := o.logger.WithFields(
		interfaces.LogField{Key: "provider_id", Value: providerID},
		interfaces.LogField{Key: "hub", Value: o.hubName},
	)
	log.InfoWithContext(ctx, "Публикация в хаб начата")
	o.publishHub(opCtx, hub)

	count, err := o.upload(ctx, opCtx, providerID)
	if err != nil {
		log.ErrorWithContext(ctx, "Публикация в хаб завершилась ошибкой", "error", err.Error())
		hub = o.state.finishHub(models.StatusError, o.now())
		_, _ = o.appendLog(opCtx, models.NewSyncLogEntry{
			ProviderID: providerID,
			Action:     models.ActionUpload,
			Outcome:    models.OutcomeError,
			Message:    fmt.Sprintf(msgUploadFailed, o.hubName, describe(err)),
		})
		done(outcomeError, 0)
	} else {
		hub = o.state.finishHub(models.StatusConnected, o.now())
		_, _ = o.appendLog(opCtx, models.NewSyncLogEntry{
			ProviderID:       providerID,
			Action:           models.ActionUpload,
			Outcome:          models.OutcomeSuccess,
			Message:          fmt.Sprintf(msgUploadSucceeded, o.hubName),
			ProductsAffected: count,
		})
		log.InfoWithContext(ctx, "Публикация в хаб завершена", "products", count)
		done(outcomeSuccess, count)
	}

	o.publishHub(opCtx, hub)
	return nil
}

func (o *Orchestrator) upload(ctx, opCtx context.Context, providerID string) (int, error) {
	if _, err := o.appendLog(opCtx, models.NewSyncLogEntry{
		ProviderID: providerID,
		Action:     models.ActionUpload,
		Outcome:    models.OutcomePending,
		Message:    fmt.Sprintf(msgUploadStarted, o.hubName),
	}); err != nil {
		return 0, err
	}

	pending, err := o.store.CountUnpublished(opCtx, providerID)
	if err != nil {
		return 0, err
	}

	var products []models.Product
	if pending > 0 {
		unpublished := false
		products, _, err = o.store.ListProducts(opCtx, models.ProductFilter{
			ProviderID: providerID,
			Published:  &unpublished,
		})
		if err != nil {
			return 0, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result, err := o.publisher.PublishToHub(callCtx, providerID, products)
	if err != nil {
		return 0, remoteFailure(callCtx, remote.OpPublish, err)
	}
	if result.Count < 0 {
		return 0, models.NewRemoteError(models.RemoteUnknown, remote.OpPublish,
			fmt.Errorf("negative product count %d", result.Count))
	}

	if len(products) > 0 {
		// помечаем только отправленные товары
		ids := make([]string, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		if _, err := o.store.MarkProductsPublished(opCtx, providerID, ids); err != nil {
			return 0, err
		}
	}
	return result.Count, nil
}

// SyncAll последовательно синхронизирует всех поставщиков со статусом не disconnected.
// Ошибка одного не останавливает остальных.
func (o *Orchestrator) SyncAll(ctx context.Context) BulkResult {
	return o.bulk(ctx, models.ActionDownload,
		func(p models.Provider) bool { return p.Status != models.StatusDisconnected },
		o.SyncProvider,
		func(id string) models.ConnectionStatus {
			p, _ := o.state.provider(id)
			return p.Status
		})
}

// PublishAll последовательно публикует в хаб всех поставщиков со статусом connected
func (o *Orchestrator) PublishAll(ctx context.Context) BulkResult {
	return o.bulk(ctx, models.ActionUpload,
		func(p models.Provider) bool { return p.Status == models.StatusConnected },
		o.UploadToHub,
		func(string) models.ConnectionStatus { return o.state.hubSnapshot().Status })
}

func (o *Orchestrator) bulk(
	ctx context.Context,
	action models.SyncAction,
	eligible func(models.Provider) bool,
	run func(context.Context, string) error,
	statusOf func(string) models.ConnectionStatus,
) BulkResult {
	result := BulkResult{Action: action, Results: []OperationResult{}}

	for _, p := range o.state.providersSnapshot() {
		if !eligible(p) {
			continue
		}

		res := OperationResult{ProviderID: p.ID}
		if err := ctx.Err(); err != nil {
			res.Skipped = true
			res.Error = err.Error()
		} else if err := run(ctx, p.ID); err != nil {
			res.Skipped = true
			res.Error = err.Error()
		}
		res.Status = statusOf(p.ID)

		switch {
		case res.Skipped:
			result.Skipped++
		case res.Status == models.StatusError:
			result.Failed++
		default:
			result.Succeeded++
		}
		result.Results = append(result.Results, res)
	}

	o.logger.InfoWithContext(ctx, "Массовая операция завершена",
		"action", action,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result
}

// ListProviders снимок поставщиков в порядке создания, без обращения к хранилищу
func (o *Orchestrator) ListProviders() []models.Provider {
	return o.state.providersSnapshot()
}

func (o *Orchestrator) ListMarketplaces() []models.Marketplace {
	return o.state.marketplacesSnapshot()
}

// RecentActivity последние n записей журнала, новые первыми
func (o *Orchestrator) RecentActivity(n int) []models.SyncLogEntry {
	return o.state.log.Recent(n)
}

func (o *Orchestrator) Stats() models.DashboardStats {
	return stats.Compute(o.state.providersSnapshot(), o.state.marketplacesSnapshot())
}

func (o *Orchestrator) Hub() models.HubConnection {
	return o.state.hubSnapshot()
}

// Provider поставщик по id из снимка состояния
func (o *Orchestrator) Provider(id string) (models.Provider, error) {
	p, ok := o.state.provider(id)
	if !ok {
		return models.Provider{}, &models.PreconditionError{Kind: models.EntityNotFound, EntityID: id}
	}
	return p, nil
}

// Products товары поставщика из хранилища, загружаются по требованию
func (o *Orchestrator) Products(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	if filter.ProviderID != "" {
		if _, ok := o.state.provider(filter.ProviderID); !ok {
			return nil, 0, &models.PreconditionError{Kind: models.EntityNotFound, EntityID: filter.ProviderID}
		}
	}
	items, total, err := o.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return items, total, nil
}

// appendLog пишет запись в хранилище и в журнал в памяти. Если хранилище
// недоступно, запись все равно попадает в журнал в памяти.
func (o *Orchestrator) appendLog(ctx context.Context, entry models.NewSyncLogEntry) (models.SyncLogEntry, error) {
	stored, err := o.store.AppendLog(ctx, entry)
	if err != nil {
		o.logger.ErrorWithContext(ctx, "Не удалось сохранить запись журнала",
			"provider_id", entry.ProviderID,
			"action", entry.Action,
			"outcome", entry.Outcome,
			"error", err.Error(),
		)
		local := models.SyncLogEntry{
			ID:               uuid.New().String(),
			ProviderID:       entry.ProviderID,
			Action:           entry.Action,
			Outcome:          entry.Outcome,
			Message:          entry.Message,
			ProductsAffected: entry.ProductsAffected,
			CreatedAt:        o.now(),
		}
		o.state.log.Append(local)
		return local, err
	}

	o.state.log.Append(*stored)
	if o.events != nil {
		if err := o.events.ActivityLogged(ctx, *stored); err != nil {
			o.logger.WarnWithContext(ctx, "Не удалось опубликовать событие журнала", "error", err.Error())
		}
	}
	return *stored, nil
}

func (o *Orchestrator) publishHub(ctx context.Context, hub models.HubConnection) {
	if o.events == nil {
		return
	}
	if err := o.events.HubStatusChanged(ctx, hub); err != nil {
		o.logger.WarnWithContext(ctx, "Не удалось опубликовать статус хаба", "error", err.Error())
	}
}

func (o *Orchestrator) reject(ctx context.Context, action models.SyncAction, err error) error {
	var pe *models.PreconditionError
	if errors.As(err, &pe) {
		o.metrics.Rejected(string(action), string(pe.Kind))
		o.logger.DebugWithContext(ctx, "Операция отклонена",
			"action", action,
			"entity_id", pe.EntityID,
			"reason", pe.Kind,
		)
	}
	return err
}

// remoteFailure приводит ошибку удаленного вызова к RemoteError
func remoteFailure(callCtx context.Context, op string, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return models.NewRemoteError(models.RemoteTimeout, op, err)
	}
	var re *models.RemoteError
	if errors.As(err, &re) {
		return err
	}
	return models.NewRemoteError(models.RemoteUnknown, op, err)
}

// describe короткое описание ошибки для журнала
func describe(err error) string {
	var re *models.RemoteError
	if errors.As(err, &re) {
		switch re.Kind {
		case models.RemoteTimeout:
			return "tiempo de espera agotado"
		case models.RemoteRejected:
			return "solicitud rechazada"
		default:
			return "error de comunicación"
		}
	}
	var se *models.StoreError
	if errors.As(err, &se) {
		switch se.Kind {
		case models.StoreNotFound:
			return "registro no encontrado"
		case models.StoreConflict:
			return "conflicto al guardar"
		default:
			return "almacenamiento no disponible"
		}
	}
	return err.Error()
}
