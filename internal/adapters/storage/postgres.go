package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/FerDeNetlab/auramarket/pkg/tx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Коды ошибок PostgreSQL, которые отображаются в StoreConflict/StoreNotFound
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

const (
	providerColumns    = "id, name, slug, description, status, product_count, api_url, api_key_ref, last_sync, created_at, updated_at"
	marketplaceColumns = "id, name, slug, description, status, product_count, api_url, api_key_ref, created_at, updated_at"
	productColumns     = "id, provider_id, sku, name, description, brand, category, price, currency, stock, images, metadata, synced_to_hub, created_at, updated_at"
	syncLogColumns     = "id, provider_id, action, status, message, products_affected, created_at"
)

// PostgresStore реализация Store для PostgreSQL
type PostgresStore struct {
	pool      *pgxpool.Pool
	txManager tx.TxManager
	logger    interfaces.LoggerPort
}

// NewPostgresStore создает хранилище поверх готового пула
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, txManager tx.TxManager, logger interfaces.LoggerPort) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresStore{
		pool:      pool,
		txManager: txManager,
		logger:    logger.WithField("component", "postgres_store"),
	}, nil
}

// Migrate применяет встроенную схему, все DDL идемпотентны
func (r *PostgresStore) Migrate(ctx context.Context) error {
	ddl, err := schemaSQL("postgres.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close закрывает пул соединений
func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresStore) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return mapPgError(OpPing, err)
	}
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

// getExecutor возвращает транзакцию из контекста или пул
func (r *PostgresStore) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return r.pool
}

// mapPgError переводит ошибки pgx в StoreError
func mapPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *models.StoreError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewStoreError(models.StoreNotFound, op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgCheckViolation, pgSerializationFailure, pgDeadlockDetected:
			return conflict(op, err)
		case pgForeignKeyViolation:
			return models.NewStoreError(models.StoreNotFound, op, err)
		}
	}
	return unavailable(op, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*models.Provider, error) {
	var p models.Provider
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &status, &p.ProductCount,
		&p.APIURL, &p.APIKeyRef, &p.LastSync, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseConnectionStatus(status)
	if err != nil {
		return nil, err
	}
	p.Status = parsed
	return &p, nil
}

func scanMarketplace(row rowScanner) (*models.Marketplace, error) {
	var m models.Marketplace
	var status string
	if err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.Description, &status, &m.ProductCount,
		&m.APIURL, &m.APIKeyRef, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseConnectionStatus(status)
	if err != nil {
		return nil, err
	}
	m.Status = parsed
	return &m, nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var images, metadata []byte
	if err := row.Scan(&p.ID, &p.ProviderID, &p.SKU, &p.Name, &p.Description, &p.Brand, &p.Category,
		&p.Price, &p.Currency, &p.Stock, &images, &metadata, &p.SyncedToHub, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeProductJSON(&p, images, metadata); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanSyncLog(row rowScanner) (*models.SyncLogEntry, error) {
	var e models.SyncLogEntry
	var action, status string
	if err := row.Scan(&e.ID, &e.ProviderID, &action, &status, &e.Message, &e.ProductsAffected, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Action = models.SyncAction(action)
	e.Outcome = models.SyncOutcome(status)
	return &e, nil
}

func decodeProductJSON(p *models.Product, images, metadata []byte) error {
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return fmt.Errorf("failed to decode product images: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return fmt.Errorf("failed to decode product metadata: %w", err)
		}
	}
	return nil
}

func encodeProductJSON(p *models.Product) (images, metadata []byte, err error) {
	imgs := p.Images
	if imgs == nil {
		imgs = []string{}
	}
	if images, err = json.Marshal(imgs); err != nil {
		return nil, nil, fmt.Errorf("failed to encode product images: %w", err)
	}
	meta := p.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if metadata, err = json.Marshal(meta); err != nil {
		return nil, nil, fmt.Errorf("failed to encode product metadata: %w", err)
	}
	return images, metadata, nil
}

func (r *PostgresStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		`SELECT `+providerColumns+` FROM hub.providers ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapPgError(OpListProviders, err)
	}
	defer rows.Close()

	var providers []models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, unavailable(OpListProviders, fmt.Errorf("failed to scan provider row: %w", err))
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(OpListProviders, err)
	}
	return providers, nil
}

func (r *PostgresStore) ListMarketplaces(ctx context.Context) ([]models.Marketplace, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		`SELECT `+marketplaceColumns+` FROM hub.marketplaces ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapPgError(OpListMarketplaces, err)
	}
	defer rows.Close()

	var marketplaces []models.Marketplace
	for rows.Next() {
		m, err := scanMarketplace(rows)
		if err != nil {
			return nil, unavailable(OpListMarketplaces, fmt.Errorf("failed to scan marketplace row: %w", err))
		}
		marketplaces = append(marketplaces, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(OpListMarketplaces, err)
	}
	return marketplaces, nil
}

// ListProducts возвращает список товаров с фильтрацией и пагинацией
func (r *PostgresStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ProviderID != "" {
		args = append(args, filter.ProviderID)
		conditions = append(conditions, fmt.Sprintf("provider_id = $%d", len(args)))
	}
	if filter.Published != nil {
		args = append(args, *filter.Published)
		conditions = append(conditions, fmt.Sprintf("synced_to_hub = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	executor := r.getExecutor(ctx)

	var total int
	if err := executor.QueryRow(ctx, `SELECT COUNT(*) FROM hub.products`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapPgError(OpListProducts, err)
	}
	if total == 0 {
		return []models.Product{}, 0, nil
	}

	query := `SELECT ` + productColumns + ` FROM hub.products` + where + ` ORDER BY created_at DESC, sku ASC`
	if filter.PageSize > 0 {
		args = append(args, filter.PageSize, filter.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapPgError(OpListProducts, err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, unavailable(OpListProducts, fmt.Errorf("failed to scan product row: %w", err))
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapPgError(OpListProducts, err)
	}

	return products, total, nil
}

func (r *PostgresStore) ListRecentLogs(ctx context.Context, providerID string, limit int) ([]models.SyncLogEntry, error) {
	if limit <= 0 {
		return []models.SyncLogEntry{}, nil
	}
	query := `SELECT ` + syncLogColumns + ` FROM hub.sync_logs`
	args := []interface{}{limit}
	if providerID != "" {
		query += ` WHERE provider_id = $2`
		args = append(args, providerID)
	}
	query += ` ORDER BY created_at DESC, seq DESC LIMIT $1`

	rows, err := r.getExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(OpListRecentLogs, err)
	}
	defer rows.Close()

	entries := make([]models.SyncLogEntry, 0, limit)
	for rows.Next() {
		e, err := scanSyncLog(rows)
		if err != nil {
			return nil, unavailable(OpListRecentLogs, fmt.Errorf("failed to scan sync log row: %w", err))
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(OpListRecentLogs, err)
	}
	return entries, nil
}

func (r *PostgresStore) CreateProvider(ctx context.Context, p models.Provider) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Status == "" {
		p.Status = models.StatusDisconnected
	}
	if err := p.Validate(); err != nil {
		return conflict(OpCreateProvider, err)
	}

	_, err := r.getExecutor(ctx).Exec(ctx, `
		INSERT INTO hub.providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Slug, p.Description, string(p.Status), p.ProductCount,
		p.APIURL, p.APIKeyRef, p.LastSync, p.CreatedAt, p.UpdatedAt)
	return mapPgError(OpCreateProvider, err)
}

func (r *PostgresStore) CreateMarketplace(ctx context.Context, m models.Marketplace) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if m.Status == "" {
		m.Status = models.StatusDisconnected
	}

	_, err := r.getExecutor(ctx).Exec(ctx, `
		INSERT INTO hub.marketplaces (`+marketplaceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.Name, m.Slug, m.Description, string(m.Status), m.ProductCount,
		m.APIURL, m.APIKeyRef, m.CreatedAt, m.UpdatedAt)
	return mapPgError(OpCreateMarketplace, err)
}

func (r *PostgresStore) UpdateProviderStatus(ctx context.Context, id string, status models.ConnectionStatus) error {
	if !status.IsValid() {
		return conflict(OpUpdateProviderStatus, fmt.Errorf("invalid status %q", status))
	}

	tag, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE hub.providers
		SET status = $2, updated_at = GREATEST(now(), created_at)
		WHERE id = $1`, id, string(status))
	if err != nil {
		return mapPgError(OpUpdateProviderStatus, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(OpUpdateProviderStatus, id)
	}
	return nil
}

// IncrementProviderProductCount один условный UPDATE, счетчик не уходит в минус
func (r *PostgresStore) IncrementProviderProductCount(ctx context.Context, id string, delta int) (*models.Provider, error) {
	var out *models.Provider
	err := r.txManager.Do(ctx, func(ctx context.Context) error {
		p, err := r.bumpProvider(ctx, OpIncrementCount, id, delta, nil)
		out = p
		return err
	})
	if err != nil {
		return nil, mapPgError(OpIncrementCount, err)
	}
	return out, nil
}

// CompleteProviderSync товары, счетчик, last_sync и статус connected в одной транзакции
func (r *PostgresStore) CompleteProviderSync(ctx context.Context, id string, delta int, syncedAt time.Time, products []models.Product) (*models.Provider, error) {
	prepared, err := prepareProducts(id, products, time.Now().UTC())
	if err != nil {
		return nil, conflict(OpCompleteSync, err)
	}

	var out *models.Provider
	synced := syncedAt.UTC()
	err = r.txManager.Do(ctx, func(ctx context.Context) error {
		if err := r.upsertProducts(ctx, OpCompleteSync, prepared); err != nil {
			return err
		}
		p, err := r.bumpProvider(ctx, OpCompleteSync, id, delta, &synced)
		out = p
		return err
	})
	if err != nil {
		return nil, mapPgError(OpCompleteSync, err)
	}
	return out, nil
}

// bumpProvider вызывается внутри транзакции. syncedAt != nil завершает синхронизацию.
func (r *PostgresStore) bumpProvider(ctx context.Context, op, id string, delta int, syncedAt *time.Time) (*models.Provider, error) {
	executor := r.getExecutor(ctx)

	var row pgx.Row
	if syncedAt != nil {
		row = executor.QueryRow(ctx, `
			UPDATE hub.providers
			SET product_count = product_count + $2,
			    last_sync = $3,
			    status = 'connected',
			    updated_at = GREATEST(now(), created_at)
			WHERE id = $1 AND product_count + $2 >= 0
			RETURNING `+providerColumns, id, delta, *syncedAt)
	} else {
		row = executor.QueryRow(ctx, `
			UPDATE hub.providers
			SET product_count = product_count + $2,
			    updated_at = GREATEST(now(), created_at)
			WHERE id = $1 AND product_count + $2 >= 0
			RETURNING `+providerColumns, id, delta)
	}

	p, err := scanProvider(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapPgError(op, err)
	}

	// строка не обновлена: либо поставщика нет, либо счетчик ушел бы в минус
	var exists bool
	if err := executor.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hub.providers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, mapPgError(op, err)
	}
	if !exists {
		return nil, notFound(op, id)
	}
	return nil, conflict(op, fmt.Errorf("product count of %s would become negative", id))
}

// SaveProducts upsert пачкой в одной транзакции
func (r *PostgresStore) SaveProducts(ctx context.Context, providerID string, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	prepared, err := prepareProducts(providerID, products, time.Now().UTC())
	if err != nil {
		return 0, conflict(OpSaveProducts, err)
	}

	err = r.txManager.Do(ctx, func(ctx context.Context) error {
		return r.upsertProducts(ctx, OpSaveProducts, prepared)
	})
	if err != nil {
		return 0, mapPgError(OpSaveProducts, err)
	}

	return len(prepared), nil
}

// upsertProducts отправляет товары одним batch, вызывается внутри транзакции
func (r *PostgresStore) upsertProducts(ctx context.Context, op string, prepared []models.Product) error {
	if len(prepared) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range prepared {
		p := &prepared[i]
		images, metadata, err := encodeProductJSON(p)
		if err != nil {
			return conflict(op, err)
		}
		batch.Queue(`
			INSERT INTO hub.products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13, $14)
			ON CONFLICT (provider_id, sku)
			DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				brand = EXCLUDED.brand,
				category = EXCLUDED.category,
				price = EXCLUDED.price,
				currency = EXCLUDED.currency,
				stock = EXCLUDED.stock,
				images = EXCLUDED.images,
				metadata = EXCLUDED.metadata,
				synced_to_hub = FALSE,
				updated_at = EXCLUDED.updated_at`,
			p.ID, p.ProviderID, p.SKU, p.Name, p.Description, p.Brand, p.Category,
			p.Price, p.Currency, p.Stock, images, metadata, p.CreatedAt, p.UpdatedAt)
	}

	results := r.getExecutor(ctx).SendBatch(ctx, batch)
	for range prepared {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func (r *PostgresStore) AppendLog(ctx context.Context, entry models.NewSyncLogEntry) (*models.SyncLogEntry, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, `
		INSERT INTO hub.sync_logs (id, provider_id, action, status, message, products_affected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+syncLogColumns,
		uuid.New().String(), entry.ProviderID, string(entry.Action), string(entry.Outcome),
		entry.Message, entry.ProductsAffected, time.Now().UTC())

	stored, err := scanSyncLog(row)
	if err != nil {
		return nil, mapPgError(OpAppendLog, err)
	}
	return stored, nil
}

func (r *PostgresStore) MarkProductsPublished(ctx context.Context, providerID string, productIDs []string) (int, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	tag, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE hub.products
		SET synced_to_hub = TRUE, updated_at = now()
		WHERE provider_id = $1 AND id = ANY($2) AND synced_to_hub = FALSE`, providerID, productIDs)
	if err != nil {
		return 0, mapPgError(OpMarkPublished, err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresStore) CountUnpublished(ctx context.Context, providerID string) (int, error) {
	var n int
	err := r.getExecutor(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM hub.products
		WHERE provider_id = $1 AND synced_to_hub = FALSE`, providerID).Scan(&n)
	if err != nil {
		return 0, mapPgError(OpCountUnpublished, err)
	}
	return n, nil
}

var _ Store = (*PostgresStore)(nil)
