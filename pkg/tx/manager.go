package tx

import (
	"context"
	"errors"
	"fmt"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE, при которых транзакцию можно безопасно повторить
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// DefaultMaxAttempts число попыток транзакции при конфликте сериализации
const DefaultMaxAttempts = 3

type txKeyType struct{}

var txKey = txKeyType{}

// TxManager управляет жизненным циклом транзакций БД.
type TxManager interface {
	// Do выполняет fn внутри транзакции.
	// Ошибка fn откатывает транзакцию, nil фиксирует ее.
	// Контекст fn содержит транзакцию, репозитории берут ее через GetTxFromContext.
	// При конфликте сериализации или дедлоке fn вызывается повторно.
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Option настройка менеджера
type Option func(*pgxTxManager)

// WithIsoLevel уровень изоляции транзакций, по умолчанию read committed
func WithIsoLevel(level pgx.TxIsoLevel) Option {
	return func(m *pgxTxManager) { m.opts.IsoLevel = level }
}

// WithMaxAttempts число попыток, значения меньше 1 означают одну попытку
func WithMaxAttempts(n int) Option {
	return func(m *pgxTxManager) {
		if n < 1 {
			n = 1
		}
		m.maxAttempts = n
	}
}

type pgxTxManager struct {
	pool        *pgxpool.Pool
	logger      interfaces.LoggerPort
	opts        pgx.TxOptions
	maxAttempts int
}

// NewTxManager создает новый менеджер транзакций.
func NewTxManager(pool *pgxpool.Pool, logger interfaces.LoggerPort, opts ...Option) TxManager {
	m := &pgxTxManager{
		pool:        pool,
		logger:      logger,
		opts:        pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *pgxTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// вложенный вызов переиспользует внешнюю транзакцию
	if _, ok := GetTxFromContext(ctx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.once(ctx, fn)
		if err == nil || !Retryable(err) || ctx.Err() != nil {
			return err
		}
		m.logger.Warn("Конфликт транзакции, повтор",
			"attempt", attempt, "max_attempts", m.maxAttempts, "error", err.Error())
	}
	return err
}

func (m *pgxTxManager) once(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	// откат на случай паники внутри fn, после Commit это no-op
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			m.logger.Warn("Не удалось откатить транзакцию",
				"error", rollbackErr.Error(), "cause", err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

// Retryable true для ошибок сериализации и дедлоков PostgreSQL
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

// GetTxFromContext извлекает транзакцию из контекста.
func GetTxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}
