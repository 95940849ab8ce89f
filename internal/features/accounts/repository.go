// Package accounts — repository.go работает с таблицами accounts и login_logs.
// Это единственное место, где пишутся строки accounts.
package accounts

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/db/postgres"
)

const accountColumns = `id, username, pin_hash, salt, balance, failed_attempts, locked_until, created_at, updated_at`

// Repository работает с таблицей accounts.
// db — пул или транзакция, см. postgres.Querier.
type Repository struct {
	db postgres.Querier
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Username, &a.PinHash, &a.Salt, &a.Balance,
		&a.FailedAttempts, &a.LockedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrAccountNotFound
		}
		return nil, common.StoreError("ошибка чтения счёта", err)
	}
	return &a, nil
}

// FindByUsername возвращает счёт по имени пользователя.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// FindByID возвращает счёт по ID.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// FindForUpdate читает счёт с блокировкой строки до конца транзакции.
// Вызывать только на репозитории, созданном поверх pgx.Tx.
func (r *Repository) FindForUpdate(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// Create вставляет счёт и возвращает его ID.
func (r *Repository) Create(ctx context.Context, acc NewAccount) (int64, error) {
	query := `
		INSERT INTO accounts (username, pin_hash, salt, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, acc.Username, acc.PinHash, acc.Salt, acc.InitialBalance).Scan(&id)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, common.ErrDuplicateUsername
		}
		return 0, common.StoreError("ошибка создания счёта", err)
	}
	return id, nil
}

// UpdateAuthState сохраняет счётчик неудачных попыток и время блокировки.
func (r *Repository) UpdateAuthState(ctx context.Context, acc *Account) error {
	query := `
		UPDATE accounts
		SET failed_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, acc.ID, acc.FailedAttempts, acc.LockedUntil)
	if err != nil {
		return common.StoreError("ошибка обновления состояния входа", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// UpdateBalance записывает новый баланс.
// Вызывается движком учёта внутри транзакции после FindForUpdate.
func (r *Repository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, balance)
	if err != nil {
		return common.StoreError("ошибка обновления баланса", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

// ListIDs возвращает ID всех счетов по возрастанию (для ежемесячных выписок).
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, common.StoreError("ошибка получения списка счетов", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, common.StoreError("ошибка чтения списка счетов", err)
	}
	return ids, nil
}

// LogLogin записывает попытку входа в login_logs.
func (r *Repository) LogLogin(ctx context.Context, accountID int64, success bool, channel string, at time.Time) error {
	query := `INSERT INTO login_logs (account_id, login_time, success, channel) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, query, accountID, at, success, channel); err != nil {
		return common.StoreError("ошибка записи попытки входа", err)
	}
	return nil
}
