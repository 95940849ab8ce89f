// Package statements формирует ежемесячные выписки по журналу операций.
// models.go описывает структуру строки таблицы statements.
package statements

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/ledger-bot/internal/features/ledger"
)

// Statement — выписка за месяц. Ключ — (AccountID, Month).
type Statement struct {
	ID          int64     `db:"id"`
	AccountID   int64     `db:"account_id"`
	Month       time.Time `db:"statement_month"` // Первое число месяца (DATE)
	GeneratedAt time.Time `db:"generated_at"`

	TotalIn  decimal.Decimal `db:"total_in"`  // Deposit + InitialDeposit + TransferIn
	TotalOut decimal.Decimal `db:"total_out"` // Withdraw + TransferOut

	// EndingBalance — баланс счёта в момент генерации.
	// Для прошлых месяцев это не баланс на конец месяца.
	EndingBalance decimal.Decimal `db:"ending_balance"`
	// ClosingBalance — баланс на конец месяца, восстановленный по журналу.
	ClosingBalance decimal.Decimal `db:"closing_balance"`

	Items []ledger.Record `db:"items"` // Записи месяца по возрастанию времени
}

// Year возвращает год выписки.
func (s *Statement) Year() int { return s.Month.Year() }

// MonthNumber возвращает месяц выписки.
func (s *Statement) MonthNumber() time.Month { return s.Month.Month() }

// Totals — итоги по направлениям движения денег.
type Totals struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

// Net — чистое изменение баланса.
func (t Totals) Net() decimal.Decimal {
	return t.In.Sub(t.Out)
}

// Summarize считает итоги по записям. FakeTransfer не учитывается.
func Summarize(records []*ledger.Record) Totals {
	t := Totals{In: decimal.Zero, Out: decimal.Zero}
	for _, r := range records {
		switch r.Type.Direction() {
		case ledger.DirectionIn:
			t.In = t.In.Add(r.Amount)
		case ledger.DirectionOut:
			t.Out = t.Out.Add(r.Amount)
		}
	}
	return t
}
