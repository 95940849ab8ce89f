// Package statements — service.go: генерация выписки за месяц и массовая генерация для cron.
package statements

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
)

// Source — согласованное чтение счёта и журнала (ledger.Repository).
type Source interface {
	Snapshot(ctx context.Context, fn func(rd ledger.Reader) error) error
}

// Accounts — список счетов для массовой генерации (accounts.Repository).
type Accounts interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// Store — хранилище выписок.
type Store interface {
	Upsert(ctx context.Context, st *Statement) error
	Get(ctx context.Context, accountID int64, month time.Time) (*Statement, error)
}

// Service формирует выписки.
type Service struct {
	source   Source
	accounts Accounts
	store    Store
	loc      *time.Location // Пояс, в котором считаются границы месяца
	now      func() time.Time
}

// NewService создаёт сервис выписок.
func NewService(source Source, accts Accounts, store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:   source,
		accounts: accts,
		store:    store,
		loc:      loc,
		now:      time.Now,
	}
}

// Location возвращает пояс, в котором считаются месяцы.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Generate формирует выписку за month и сохраняет её (upsert).
//
// Алгоритм:
//  1. Интервал [начало месяца, начало следующего) в поясе сервиса
//  2. Записи журнала за интервал по возрастанию
//  3. total_in / total_out по направлению записи, FakeTransfer не считается
//  4. ending_balance — текущий баланс счёта
//  5. closing_balance — текущий баланс минус чистый эффект записей после месяца
//
// Баланс и обе выборки журнала читаются в одном снимке БД, иначе
// операция, зафиксированная между чтениями, исказила бы closing_balance.
//
// Повторный вызов без новых операций даёт тот же результат, кроме generated_at.
func (s *Service) Generate(ctx context.Context, accountID int64, year int, month time.Month) (*Statement, error) {
	if year < 1970 || month < time.January || month > time.December {
		return nil, common.NewValidationError("month", "год от 1970, месяц от 1 до 12")
	}

	start, next := common.MonthRange(year, month, s.loc)

	var (
		acc            *accounts.Account
		records, later []*ledger.Record
	)
	err := s.source.Snapshot(ctx, func(rd ledger.Reader) error {
		var err error
		if acc, err = rd.FindAccount(ctx, accountID); err != nil {
			return err
		}
		if records, err = rd.History(ctx, accountID, ledger.HistoryFilter{From: start, To: next}); err != nil {
			return err
		}
		later, err = rd.History(ctx, accountID, ledger.HistoryFilter{From: next})
		return err
	})
	if err != nil {
		return nil, err
	}

	totals := Summarize(records)
	items := make([]ledger.Record, 0, len(records))
	for _, r := range records {
		items = append(items, *r)
	}

	st := &Statement{
		AccountID:      accountID,
		Month:          monthKey(year, month),
		GeneratedAt:    s.now(),
		TotalIn:        common.RoundMoney(totals.In),
		TotalOut:       common.RoundMoney(totals.Out),
		EndingBalance:  acc.Balance,
		ClosingBalance: closingBalance(acc.Balance, Summarize(later)),
		Items:          items,
	}

	if err := s.store.Upsert(ctx, st); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"month":      common.FormatYearMonth(year, month),
		"items":      len(items),
	}).Info("Выписка сформирована")

	return st, nil
}

// Get возвращает сохранённую выписку или ErrStatementNotFound.
func (s *Service) Get(ctx context.Context, accountID int64, year int, month time.Month) (*Statement, error) {
	return s.store.Get(ctx, accountID, monthKey(year, month))
}

// GenerateAll формирует выписки за месяц для всех счетов.
// Ошибка по отдельному счёту логируется и не останавливает остальные.
// Возвращает количество успешно сформированных выписок.
func (s *Service) GenerateAll(ctx context.Context, year int, month time.Month) (int, error) {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		if _, err := s.Generate(ctx, id, year, month); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"account_id": id,
				"month":      common.FormatYearMonth(year, month),
			}).Error("Не удалось сформировать выписку")
			continue
		}
		generated++
	}
	return generated, nil
}

// CurrentMonth возвращает текущий месяц в поясе сервиса.
func (s *Service) CurrentMonth() (int, time.Month) {
	now := s.now().In(s.loc)
	return now.Year(), now.Month()
}

// monthKey — значение столбца statement_month: первое число месяца.
func monthKey(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func closingBalance(current decimal.Decimal, after Totals) decimal.Decimal {
	return common.RoundMoney(current.Sub(after.Net()))
}
