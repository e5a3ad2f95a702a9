package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore реализация Store поверх SQLite (modernc, без CGO).
// Режим для одной ноды и локального запуска.
type SQLiteStore struct {
	db     *sql.DB
	logger interfaces.LoggerPort
	now    func() time.Time
}

// NewSQLiteStore открывает базу и применяет схему. path ":memory:" - база в памяти.
func NewSQLiteStore(ctx context.Context, path string, logger interfaces.LoggerPort) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// одно соединение: для :memory: каждое соединение видит свою базу,
	// а для файла запись в SQLite все равно сериализуется
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddl, err := schemaSQL("sqlite.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(OpPing, err)
	}
	return nil
}

// mapSQLiteError переводит ошибки драйвера в StoreError
func mapSQLiteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *models.StoreError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewStoreError(models.StoreNotFound, op, err)
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return conflict(op, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return models.NewStoreError(models.StoreNotFound, op, err)
		}
	}
	return unavailable(op, err)
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx выполняет fn в транзакции database/sql
func (s *SQLiteStore) withTx(ctx context.Context, fn func(q sqliteQuerier) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = txn.Rollback()
	}()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

func scanSQLiteProvider(row rowScanner) (*models.Provider, error) {
	var p models.Provider
	var status string
	var lastSync sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &status, &p.ProductCount,
		&p.APIURL, &p.APIKeyRef, &lastSync, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseConnectionStatus(status)
	if err != nil {
		return nil, err
	}
	p.Status = parsed
	if lastSync.Valid {
		ts := fromUnix(lastSync.Int64)
		p.LastSync = &ts
	}
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return &p, nil
}

func (s *SQLiteStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+providerColumns+` FROM providers ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapSQLiteError(OpListProviders, err)
	}
	defer rows.Close()

	var providers []models.Provider
	for rows.Next() {
		p, err := scanSQLiteProvider(rows)
		if err != nil {
			return nil, unavailable(OpListProviders, fmt.Errorf("failed to scan provider row: %w", err))
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(OpListProviders, err)
	}
	return providers, nil
}

func (s *SQLiteStore) ListMarketplaces(ctx context.Context) ([]models.Marketplace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+marketplaceColumns+` FROM marketplaces ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapSQLiteError(OpListMarketplaces, err)
	}
	defer rows.Close()

	var marketplaces []models.Marketplace
	for rows.Next() {
		var m models.Marketplace
		var status string
		var createdAt, updatedAt int64
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.Description, &status, &m.ProductCount,
			&m.APIURL, &m.APIKeyRef, &createdAt, &updatedAt); err != nil {
			return nil, unavailable(OpListMarketplaces, fmt.Errorf("failed to scan marketplace row: %w", err))
		}
		parsed, err := models.ParseConnectionStatus(status)
		if err != nil {
			return nil, unavailable(OpListMarketplaces, err)
		}
		m.Status = parsed
		m.CreatedAt = fromUnix(createdAt)
		m.UpdatedAt = fromUnix(updatedAt)
		marketplaces = append(marketplaces, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(OpListMarketplaces, err)
	}
	return marketplaces, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ProviderID != "" {
		conditions = append(conditions, "provider_id = ?")
		args = append(args, filter.ProviderID)
	}
	if filter.Published != nil {
		conditions = append(conditions, "synced_to_hub = ?")
		args = append(args, *filter.Published)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapSQLiteError(OpListProducts, err)
	}
	if total == 0 {
		return []models.Product{}, 0, nil
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY created_at DESC, sku ASC`
	if filter.PageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.PageSize, filter.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapSQLiteError(OpListProducts, err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		var images, metadata string
		var createdAt, updatedAt int64
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.SKU, &p.Name, &p.Description, &p.Brand, &p.Category,
			&p.Price, &p.Currency, &p.Stock, &images, &metadata, &p.SyncedToHub, &createdAt, &updatedAt); err != nil {
			return nil, 0, unavailable(OpListProducts, fmt.Errorf("failed to scan product row: %w", err))
		}
		if err := decodeProductJSON(&p, []byte(images), []byte(metadata)); err != nil {
			return nil, 0, unavailable(OpListProducts, err)
		}
		p.CreatedAt = fromUnix(createdAt)
		p.UpdatedAt = fromUnix(updatedAt)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapSQLiteError(OpListProducts, err)
	}
	return products, total, nil
}

func (s *SQLiteStore) ListRecentLogs(ctx context.Context, providerID string, limit int) ([]models.SyncLogEntry, error) {
	if limit <= 0 {
		return []models.SyncLogEntry{}, nil
	}
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs`
	var args []interface{}
	if providerID != "" {
		query += ` WHERE provider_id = ?`
		args = append(args, providerID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(OpListRecentLogs, err)
	}
	defer rows.Close()

	entries := make([]models.SyncLogEntry, 0, limit)
	for rows.Next() {
		var e models.SyncLogEntry
		var action, status string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.ProviderID, &action, &status, &e.Message, &e.ProductsAffected, &createdAt); err != nil {
			return nil, unavailable(OpListRecentLogs, fmt.Errorf("failed to scan sync log row: %w", err))
		}
		e.Action = models.SyncAction(action)
		e.Outcome = models.SyncOutcome(status)
		e.CreatedAt = fromUnix(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(OpListRecentLogs, err)
	}
	return entries, nil
}

func (s *SQLiteStore) CreateProvider(ctx context.Context, p models.Provider) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
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

	var lastSync interface{}
	if p.LastSync != nil {
		lastSync = toUnix(*p.LastSync)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (`+providerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, p.Description, string(p.Status), p.ProductCount,
		p.APIURL, p.APIKeyRef, lastSync, toUnix(p.CreatedAt), toUnix(p.UpdatedAt))
	return mapSQLiteError(OpCreateProvider, err)
}

func (s *SQLiteStore) CreateMarketplace(ctx context.Context, m models.Marketplace) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if m.Status == "" {
		m.Status = models.StatusDisconnected
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketplaces (`+marketplaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Slug, m.Description, string(m.Status), m.ProductCount,
		m.APIURL, m.APIKeyRef, toUnix(m.CreatedAt), toUnix(m.UpdatedAt))
	return mapSQLiteError(OpCreateMarketplace, err)
}

func (s *SQLiteStore) UpdateProviderStatus(ctx context.Context, id string, status models.ConnectionStatus) error {
	if !status.IsValid() {
		return conflict(OpUpdateProviderStatus, fmt.Errorf("invalid status %q", status))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE providers SET status = ?, updated_at = MAX(?, created_at) WHERE id = ?`,
		string(status), toUnix(s.now()), id)
	if err != nil {
		return mapSQLiteError(OpUpdateProviderStatus, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(OpUpdateProviderStatus, id)
	}
	return nil
}

func (s *SQLiteStore) IncrementProviderProductCount(ctx context.Context, id string, delta int) (*models.Provider, error) {
	var out *models.Provider
	err := s.withTx(ctx, func(q sqliteQuerier) error {
		p, err := s.bumpProvider(ctx, q, OpIncrementCount, id, delta, nil)
		out = p
		return err
	})
	if err != nil {
		return nil, mapSQLiteError(OpIncrementCount, err)
	}
	return out, nil
}

func (s *SQLiteStore) CompleteProviderSync(ctx context.Context, id string, delta int, syncedAt time.Time, products []models.Product) (*models.Provider, error) {
	prepared, err := prepareProducts(id, products, s.now())
	if err != nil {
		return nil, conflict(OpCompleteSync, err)
	}

	var out *models.Provider
	err = s.withTx(ctx, func(q sqliteQuerier) error {
		if err := s.upsertProducts(ctx, q, OpCompleteSync, prepared); err != nil {
			return err
		}
		p, err := s.bumpProvider(ctx, q, OpCompleteSync, id, delta, &syncedAt)
		out = p
		return err
	})
	if err != nil {
		return nil, mapSQLiteError(OpCompleteSync, err)
	}
	return out, nil
}

func (s *SQLiteStore) bumpProvider(ctx context.Context, q sqliteQuerier, op, id string, delta int, syncedAt *time.Time) (*models.Provider, error) {
	now := toUnix(s.now())

	var res sql.Result
	var err error
	if syncedAt != nil {
		res, err = q.ExecContext(ctx, `
			UPDATE providers
			SET product_count = product_count + ?, last_sync = ?, status = 'connected',
			    updated_at = MAX(?, created_at)
			WHERE id = ? AND product_count + ? >= 0`,
			delta, toUnix(*syncedAt), now, id, delta)
	} else {
		res, err = q.ExecContext(ctx, `
			UPDATE providers
			SET product_count = product_count + ?, updated_at = MAX(?, created_at)
			WHERE id = ? AND product_count + ? >= 0`,
			delta, now, id, delta)
	}
	if err != nil {
		return nil, mapSQLiteError(op, err)
	}

	p, err := scanSQLiteProvider(q.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, id)
	}
	if err != nil {
		return nil, mapSQLiteError(op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, conflict(op, fmt.Errorf("product count of %s would become negative", id))
	}
	return p, nil
}

func (s *SQLiteStore) SaveProducts(ctx context.Context, providerID string, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	prepared, err := prepareProducts(providerID, products, s.now())
	if err != nil {
		return 0, conflict(OpSaveProducts, err)
	}

	err = s.withTx(ctx, func(q sqliteQuerier) error {
		return s.upsertProducts(ctx, q, OpSaveProducts, prepared)
	})
	if err != nil {
		return 0, mapSQLiteError(OpSaveProducts, err)
	}
	return len(prepared), nil
}

func (s *SQLiteStore) upsertProducts(ctx context.Context, q sqliteQuerier, op string, prepared []models.Product) error {
	for i := range prepared {
		p := &prepared[i]
		images, metadata, err := encodeProductJSON(p)
		if err != nil {
			return conflict(op, err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO products (`+productColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT (provider_id, sku) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				brand = excluded.brand,
				category = excluded.category,
				price = excluded.price,
				currency = excluded.currency,
				stock = excluded.stock,
				images = excluded.images,
				metadata = excluded.metadata,
				synced_to_hub = 0,
				updated_at = excluded.updated_at`,
			p.ID, p.ProviderID, p.SKU, p.Name, p.Description, p.Brand, p.Category,
			p.Price, p.Currency, p.Stock, string(images), string(metadata),
			toUnix(p.CreatedAt), toUnix(p.UpdatedAt)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) AppendLog(ctx context.Context, entry models.NewSyncLogEntry) (*models.SyncLogEntry, error) {
	stored := models.SyncLogEntry{
		ID:               uuid.New().String(),
		ProviderID:       entry.ProviderID,
		Action:           entry.Action,
		Outcome:          entry.Outcome,
		Message:          entry.Message,
		ProductsAffected: entry.ProductsAffected,
		CreatedAt:        s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, provider_id, action, status, message, products_affected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.ProviderID, string(stored.Action), string(stored.Outcome),
		stored.Message, stored.ProductsAffected, toUnix(stored.CreatedAt))
	if err != nil {
		return nil, mapSQLiteError(OpAppendLog, err)
	}
	return &stored, nil
}

func (s *SQLiteStore) MarkProductsPublished(ctx context.Context, providerID string, productIDs []string) (int, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(productIDs)+2)
	args = append(args, toUnix(s.now()), providerID)
	for _, id := range productIDs {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(productIDs)), ", ")

	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET synced_to_hub = 1, updated_at = ?
		WHERE provider_id = ? AND synced_to_hub = 0 AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, mapSQLiteError(OpMarkPublished, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(OpMarkPublished, err)
	}
	return int(n), nil
}

func (s *SQLiteStore) CountUnpublished(ctx context.Context, providerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE provider_id = ? AND synced_to_hub = 0`, providerID).Scan(&n)
	if err != nil {
		return 0, mapSQLiteError(OpCountUnpublished, err)
	}
	return n, nil
}

var _ Store = (*SQLiteStore)(nil)
