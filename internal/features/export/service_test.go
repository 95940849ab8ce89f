package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
)

type fakeHistory []*ledger.Record

func (f fakeHistory) History(_ context.Context, accountID int64, _ ledger.HistoryFilter) ([]*ledger.Record, error) {
	var out []*ledger.Record
	for _, r := range f {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAccounts map[int64]*accounts.Account

func (f fakeAccounts) FindByID(_ context.Context, id int64) (*accounts.Account, error) {
	a, ok := f[id]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	return a, nil
}

func sampleHistory() fakeHistory {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return fakeHistory{
		{ID: 1, AccountID: 1, Type: ledger.TypeInitialDeposit, Amount: decimal.RequireFromString("100"), CreatedAt: ts},
		{ID: 2, AccountID: 1, Type: ledger.TypeTransferOut, Amount: decimal.RequireFromString("12.5"), Counterparty: "bob", CreatedAt: ts.Add(time.Hour)},
		{ID: 3, AccountID: 1, Type: ledger.TypeFakeTransfer, Amount: decimal.RequireFromString("1"), Counterparty: "eve", Note: `note, with "quotes"`, CreatedAt: ts.Add(2 * time.Hour)},
		{ID: 4, AccountID: 2, Type: ledger.TypeDeposit, Amount: decimal.RequireFromString("5"), CreatedAt: ts},
	}
}

func TestExportProducesBothFiles(t *testing.T) {
	svc := NewService(sampleHistory(), fakeAccounts{1: {ID: 1, Username: "alice"}}, time.UTC)

	files, err := svc.Export(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "history_alice.csv", files[0].Name)
	assert.Equal(t, "history_alice.json", files[1].Name)

	rows, err := csv.NewReader(bytes.NewReader(files[0].Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"1", "2026-03-01 09:30:00", "InitialDeposit", "100.00", "", ""}, rows[1])
	assert.Equal(t, []string{"2", "2026-03-01 10:30:00", "TransferOut", "12.50", "bob", ""}, rows[2])
	assert.Equal(t, `note, with "quotes"`, rows[3][5])

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(files[1].Data, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, float64(1), decoded[0]["index"])
	assert.Equal(t, 12.5, decoded[1]["amount"])
	assert.Equal(t, "eve", decoded[2]["counterparty"])
	assert.Contains(t, string(files[1].Data), `"amount": 100.00`)
}

func TestExportEmptyHistory(t *testing.T) {
	svc := NewService(fakeHistory{}, fakeAccounts{7: {ID: 7, Username: "empty"}}, time.UTC)

	files, err := svc.Export(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "index,created_at,type,amount,counterparty,note\n", string(files[0].Data))
	assert.Equal(t, "[]\n", string(files[1].Data))
}

func TestExportUnknownAccount(t *testing.T) {
	svc := NewService(fakeHistory{}, fakeAccounts{}, time.UTC)

	_, err := svc.Export(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrAccountNotFound)
}

func TestRowsUseLocation(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	rows := Rows(sampleHistory()[:1], loc)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-01 12:30:00", rows[0].CreatedAt)
}
