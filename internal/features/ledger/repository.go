// Package ledger — repository.go: транзакции БД для операций учёта и чтение истории.
// Строки accounts пишет только accounts.Repository, здесь он привязывается к pgx.Tx.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/db/postgres"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
)

const recordColumns = `id, account_id, type, amount, counterparty, note, created_at`

// Tx — операции, доступные внутри одной транзакции учёта.
type Tx interface {
	// LockAccount читает счёт и блокирует строку до конца транзакции.
	LockAccount(ctx context.Context, id int64) (*accounts.Account, error)
	// FindAccountByUsername читает счёт без блокировки.
	FindAccountByUsername(ctx context.Context, username string) (*accounts.Account, error)
	CreateAccount(ctx context.Context, acc accounts.NewAccount) (int64, error)
	SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	Append(ctx context.Context, rec NewRecord) (*Record, error)
}

// Store — хранилище учёта. Atomic фиксирует всё, что сделала fn, или ничего.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	History(ctx context.Context, accountID int64, filter HistoryFilter) ([]*Record, error)
}

// Reader — чтение счёта и журнала внутри одного снимка БД.
type Reader interface {
	FindAccount(ctx context.Context, id int64) (*accounts.Account, error)
	History(ctx context.Context, accountID int64, filter HistoryFilter) ([]*Record, error)
}

// Repository реализует Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий учёта.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Atomic выполняет fn в одной транзакции БД.
func (r *Repository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, accounts: accounts.NewRepository(tx)})
	})
}

// Snapshot выполняет fn в read-only транзакции REPEATABLE READ.
// Баланс и записи журнала, прочитанные через Reader, согласованы между собой:
// операция либо видна целиком (баланс и запись), либо не видна вовсе.
func (r *Repository) Snapshot(ctx context.Context, fn func(rd Reader) error) error {
	return postgres.WithSnapshot(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgReader{tx: tx, accounts: accounts.NewRepository(tx)})
	})
}

// History возвращает записи счёта по фильтру.
func (r *Repository) History(ctx context.Context, accountID int64, filter HistoryFilter) ([]*Record, error) {
	return queryHistory(ctx, r.db, accountID, filter)
}

func queryHistory(ctx context.Context, db postgres.Querier, accountID int64, filter HistoryFilter) ([]*Record, error) {
	var sb strings.Builder
	args := []any{accountID}

	sb.WriteString(`SELECT ` + recordColumns + ` FROM transactions WHERE account_id = $1`)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND created_at < $%d", len(args))
	}
	if filter.NewestFirst {
		sb.WriteString(" ORDER BY id DESC")
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, common.StoreError("ошибка получения истории", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var txType string
		if err := rows.Scan(
			&rec.ID, &rec.AccountID, &txType, &rec.Amount,
			&rec.Counterparty, &rec.Note, &rec.CreatedAt,
		); err != nil {
			return nil, common.StoreError("ошибка сканирования записи", err)
		}
		rec.Type = TxType(txType)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError("ошибка чтения истории", err)
	}
	return records, nil
}

// pgReader — Reader поверх read-only pgx.Tx.
type pgReader struct {
	tx       pgx.Tx
	accounts *accounts.Repository
}

func (r *pgReader) FindAccount(ctx context.Context, id int64) (*accounts.Account, error) {
	return r.accounts.FindByID(ctx, id)
}

func (r *pgReader) History(ctx context.Context, accountID int64, filter HistoryFilter) ([]*Record, error) {
	return queryHistory(ctx, r.tx, accountID, filter)
}

// pgTx — Tx поверх pgx.Tx.
type pgTx struct {
	tx       pgx.Tx
	accounts *accounts.Repository
}

func (t *pgTx) LockAccount(ctx context.Context, id int64) (*accounts.Account, error) {
	return t.accounts.FindForUpdate(ctx, id)
}

func (t *pgTx) FindAccountByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	return t.accounts.FindByUsername(ctx, username)
}

func (t *pgTx) CreateAccount(ctx context.Context, acc accounts.NewAccount) (int64, error) {
	return t.accounts.Create(ctx, acc)
}

func (t *pgTx) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	return t.accounts.UpdateBalance(ctx, id, balance)
}

// Append добавляет запись журнала; id и created_at назначает БД.
func (t *pgTx) Append(ctx context.Context, rec NewRecord) (*Record, error) {
	query := `
		INSERT INTO transactions (account_id, type, amount, counterparty, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	out := &Record{
		AccountID:    rec.AccountID,
		Type:         rec.Type,
		Amount:       rec.Amount,
		Counterparty: rec.Counterparty,
		Note:         rec.Note,
	}
	err := t.tx.QueryRow(ctx, query,
		rec.AccountID, string(rec.Type), rec.Amount, rec.Counterparty, rec.Note,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, common.StoreError("ошибка записи операции", err)
	}
	return out, nil
}
