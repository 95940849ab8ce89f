// Package statements — repository.go работает с таблицей statements.
// Выписка пишется через upsert: повторная генерация перезаписывает все поля.
package statements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/db/postgres"
)

// Repository работает с выписками.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий выписок.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert вставляет выписку или перезаписывает существующую за тот же месяц.
// Заполняет st.ID.
func (r *Repository) Upsert(ctx context.Context, st *Statement) error {
	items, err := json.Marshal(st.Items)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записей выписки: %w", err)
	}

	query := `
		INSERT INTO statements (
			account_id, statement_month, generated_at,
			total_in, total_out, ending_balance, closing_balance, items
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, statement_month) DO UPDATE SET
			generated_at    = EXCLUDED.generated_at,
			total_in        = EXCLUDED.total_in,
			total_out       = EXCLUDED.total_out,
			ending_balance  = EXCLUDED.ending_balance,
			closing_balance = EXCLUDED.closing_balance,
			items           = EXCLUDED.items
		RETURNING id
	`
	err = r.db.QueryRow(ctx, query,
		st.AccountID, st.Month, st.GeneratedAt,
		st.TotalIn, st.TotalOut, st.EndingBalance, st.ClosingBalance, items,
	).Scan(&st.ID)
	if err != nil {
		return common.StoreError("ошибка сохранения выписки", err)
	}
	return nil
}

// Get возвращает выписку за месяц (month — первое число месяца).
func (r *Repository) Get(ctx context.Context, accountID int64, month time.Time) (*Statement, error) {
	query := `
		SELECT id, account_id, statement_month, generated_at,
		       total_in, total_out, ending_balance, closing_balance, items
		FROM statements
		WHERE account_id = $1 AND statement_month = $2
	`
	var st Statement
	var items []byte
	err := r.db.QueryRow(ctx, query, accountID, month).Scan(
		&st.ID, &st.AccountID, &st.Month, &st.GeneratedAt,
		&st.TotalIn, &st.TotalOut, &st.EndingBalance, &st.ClosingBalance, &items,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, common.ErrStatementNotFound
		}
		return nil, common.StoreError("ошибка чтения выписки", err)
	}
	if err := json.Unmarshal(items, &st.Items); err != nil {
		return nil, fmt.Errorf("ошибка разбора записей выписки: %w", err)
	}
	return &st, nil
}
