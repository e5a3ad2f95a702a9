package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/internal/domain/services"
	"github.com/FerDeNetlab/auramarket/internal/utils"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	pkgutils "github.com/FerDeNetlab/auramarket/pkg/utils"
	"github.com/go-chi/chi/v5"
)

// Ограничения пагинации и журнала
const (
	defaultPageSize      = 20
	maxPageSize          = 100
	defaultActivityLimit = 10
)

// HubService операции оркестратора, которые нужны HTTP слою
type HubService interface {
	ListProviders() []models.Provider
	Provider(id string) (models.Provider, error)
	ListMarketplaces() []models.Marketplace
	RecentActivity(n int) []models.SyncLogEntry
	Stats() models.DashboardStats
	Hub() models.HubConnection
	Products(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)

	SyncProvider(ctx context.Context, providerID string) error
	UploadToHub(ctx context.Context, providerID string) error
	SyncAll(ctx context.Context) services.BulkResult
	PublishAll(ctx context.Context) services.BulkResult
	Refresh(ctx context.Context) error
}

// HubHandler обработчик запросов панели синхронизации
type HubHandler struct {
	hub    HubService
	logger interfaces.LoggerPort
}

func NewHubHandler(hub HubService, logger interfaces.LoggerPort) *HubHandler {
	return &HubHandler{
		hub:    hub,
		logger: logger.WithField("component", "hub_handler"),
	}
}

// ListProviders godoc
// @Summary      Список поставщиков
// @Tags         providers
// @Produce      json
// @Success      200  {object}  response{data=[]models.Provider}
// @Router       /providers [get]
func (h *HubHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.hub.ListProviders(), nil)
}

// GetProvider godoc
// @Summary      Поставщик по id
// @Tags         providers
// @Produce      json
// @Param        id   path      string  true  "id поставщика"
// @Success      200  {object}  response{data=models.Provider}
// @Failure      404  {object}  errorResponse
// @Router       /providers/{id} [get]
func (h *HubHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.hub.Provider(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Поставщик не найден")
		return
	}
	respond(w, r, p, nil)
}

// ListProducts godoc
// @Summary      Товары поставщика
// @Tags         providers
// @Produce      json
// @Param        id         path      string  true   "id поставщика"
// @Param        page       query     int     false  "номер страницы"
// @Param        page_size  query     int     false  "размер страницы"
// @Param        published  query     bool    false  "только опубликованные или неопубликованные"
// @Success      200  {object}  response{data=[]models.Product}
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /providers/{id}/products [get]
func (h *HubHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pagination, err := pkgutils.ParsePagination(q, pkgutils.PageParams{DefaultSize: defaultPageSize, MaxSize: maxPageSize})
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	filter := models.ProductFilter{
		ProviderID: chi.URLParam(r, "id"),
		Page:       pagination.Page,
		PageSize:   pagination.PageSize,
	}
	if raw := q.Get("published"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "bad_request", "published must be true or false")
			return
		}
		filter.Published = &v
	}

	products, total, err := h.hub.Products(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "Ошибка получения списка товаров")
		return
	}

	pagination.SetTotal(total)

	respond(w, r, products, map[string]interface{}{
		"pagination": pagination,
	})
}

// ListMarketplaces godoc
// @Summary      Список маркетплейсов
// @Tags         marketplaces
// @Produce      json
// @Success      200  {object}  response{data=[]models.Marketplace}
// @Router       /marketplaces [get]
func (h *HubHandler) ListMarketplaces(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.hub.ListMarketplaces(), nil)
}

// ListActivity godoc
// @Summary      Последние записи журнала
// @Tags         activity
// @Produce      json
// @Param        limit  query     int  false  "количество записей"
// @Success      200  {object}  response{data=[]models.SyncLogEntry}
// @Failure      400  {object}  errorResponse
// @Router       /activity [get]
func (h *HubHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			respondError(w, r, http.StatusBadRequest, "bad_request", utils.ErrInvalidLimit.Error())
			return
		}
		limit = v
	}
	respond(w, r, h.hub.RecentActivity(limit), nil)
}

// GetStats godoc
// @Summary      Статистика панели
// @Tags         stats
// @Produce      json
// @Success      200  {object}  response{data=models.DashboardStats}
// @Router       /stats [get]
func (h *HubHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.hub.Stats()
	if stats.Inconsistent {
		h.logger.WarnWithContext(r.Context(), "Маркетплейсы сообщают больше товаров, чем поставщики",
			"total_products", stats.TotalProducts,
			"synced_products", stats.SyncedProducts,
		)
	}
	respond(w, r, stats, nil)
}

// GetHub godoc
// @Summary      Подключение к хабу
// @Tags         hub
// @Produce      json
// @Success      200  {object}  response{data=models.HubConnection}
// @Router       /hub [get]
func (h *HubHandler) GetHub(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.hub.Hub(), nil)
}

// SyncProvider godoc
// @Summary      Скачать каталог поставщика
// @Description  Ошибка поставщика не меняет код ответа: итог виден в статусе и журнале
// @Tags         operations
// @Produce      json
// @Param        id   path      string  true  "id поставщика"
// @Success      200  {object}  response{data=models.Provider}
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /providers/{id}/sync [post]
func (h *HubHandler) SyncProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.hub.SyncProvider(r.Context(), id); err != nil {
		h.fail(w, r, err, "Синхронизация не запущена")
		return
	}
	p, err := h.hub.Provider(id)
	if err != nil {
		h.fail(w, r, err, "Поставщик не найден")
		return
	}
	respond(w, r, p, nil)
}

// UploadProvider godoc
// @Summary      Опубликовать товары поставщика в хаб
// @Tags         operations
// @Produce      json
// @Param        id   path      string  true  "id поставщика"
// @Success      200  {object}  response{data=models.HubConnection}
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /providers/{id}/upload [post]
func (h *HubHandler) UploadProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.UploadToHub(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Публикация не запущена")
		return
	}
	respond(w, r, h.hub.Hub(), nil)
}

// SyncAll godoc
// @Summary      Синхронизировать всех подключенных поставщиков
// @Tags         operations
// @Produce      json
// @Success      200  {object}  response{data=services.BulkResult}
// @Router       /sync-all [post]
func (h *HubHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.hub.SyncAll(r.Context()), nil)
}

// PublishAll godoc
// @Summary      Опубликовать товары всех подключенных поставщиков
// @Tags         operations
// @Produce      json
// @Success      200  {object}  response{data=services.BulkResult}
// @Router       /publish-all [post]
func (h *HubHandler) PublishAll(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.hub.PublishAll(r.Context()), nil)
}

// Refresh godoc
// @Summary      Перечитать состояние из хранилища
// @Tags         operations
// @Produce      json
// @Success      200  {object}  response{data=models.DashboardStats}
// @Failure      503  {object}  errorResponse
// @Router       /refresh [post]
func (h *HubHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.Refresh(r.Context()); err != nil {
		h.fail(w, r, err, "Хранилище недоступно")
		return
	}
	respond(w, r, h.hub.Stats(), nil)
}

func (h *HubHandler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorWithContext(r.Context(), message, "error", err.Error())
	} else {
		h.logger.DebugWithContext(r.Context(), message, "error", err.Error())
	}
	respondError(w, r, status, code, message)
}
