package statements

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
)

func TestFormatStatement(t *testing.T) {
	st := &Statement{
		Month:          time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		TotalIn:        decimal.NewFromInt(150),
		TotalOut:       decimal.NewFromInt(20),
		ClosingBalance: decimal.NewFromInt(130),
		EndingBalance:  decimal.NewFromInt(100),
		Items: []ledger.Record{
			{Type: ledger.TypeDeposit},
			{Type: ledger.TypeWithdraw},
			{Type: ledger.TypeFakeTransfer},
		},
	}

	want := "🧾 Выписка за 2026-09\n" +
		"➕ Поступления: $150.00\n" +
		"➖ Списания: $20.00\n" +
		"📌 Баланс на конец месяца: $130.00\n" +
		"💰 Текущий баланс: $100.00\n" +
		"Операций: 3 (из них симуляций: 1)"
	assert.Equal(t, want, FormatStatement(st, "USD"))
}

type failingSource struct{}

func (failingSource) Snapshot(ctx context.Context, _ func(rd ledger.Reader) error) error {
	return common.StoreError("snapshot", ctx.Err())
}

type chatNotifier struct {
	texts   []string
	ctxErrs []error
}

func (n *chatNotifier) Notify(ctx context.Context, _ int64, text string) error {
	n.texts = append(n.texts, text)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return nil
}

func (n *chatNotifier) NotifyDocument(context.Context, int64, string, []byte, string) error {
	return nil
}

// Задача упала по таймауту: сообщение о сбое всё равно уходит с живым ctx.
func TestStatementTaskReportsFailureAfterTimeout(t *testing.T) {
	n := &chatNotifier{}
	h := NewHandler(NewService(failingSource{}, nil, nil, time.UTC), nil, n, nil, "USD")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.statementTask(7, 1, 2026, time.September)(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, n.texts, 1)
	assert.Equal(t, "❌ Не удалось сформировать выписку за 2026-09", n.texts[0])
	assert.NoError(t, n.ctxErrs[0])
}
