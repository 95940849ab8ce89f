// Package postgres — queries.go содержит общие утилиты для выполнения запросов:
// интерфейс Querier (пул или транзакция) и обёртку WithTx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serotonyl.ru/ledger-bot/internal/common"
)

// uniqueViolation — SQLSTATE нарушения уникального индекса.
const uniqueViolation = "23505"

// Querier — общее подмножество *pgxpool.Pool и pgx.Tx.
// Репозитории принимают его, чтобы одни и те же запросы работали
// и сами по себе, и внутри чужой транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner умеет открывать транзакцию (пул или соединение).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SnapshotBeginner открывает транзакцию с заданными опциями (пул).
type SnapshotBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithSnapshot выполняет fn в read-only транзакции REPEATABLE READ.
// Все запросы fn видят один снимок БД: изменения, зафиксированные
// после первого запроса, в него не попадают.
func WithSnapshot(ctx context.Context, db SnapshotBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return common.StoreError("ошибка начала транзакции чтения", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return common.StoreError("ошибка завершения транзакции чтения", err)
	}
	return nil
}

// WithTx выполняет fn в транзакции.
// Если fn вернула ошибку — транзакция откатывается, ошибка возвращается как есть.
// Сбои BEGIN/COMMIT оборачиваются в common.ErrStoreUnavailable.
func WithTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return common.StoreError("ошибка начала транзакции", err)
	}
	// Откатываем транзакцию, если что-то пошло не так (после Commit это no-op)
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.StoreError("ошибка фиксации транзакции", err)
	}
	return nil
}

// IsUniqueViolation сообщает, что запрос упал на уникальном индексе.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsNoRows сообщает, что QueryRow не нашёл строк.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
