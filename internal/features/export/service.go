// Package export выгружает историю операций счёта в CSV и JSON.
// Файлы называются history_<username>.csv и history_<username>.json.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
	"serotonyl.ru/ledger-bot/internal/features/ledger"
)

// csvHeader — заголовок CSV-выгрузки.
var csvHeader = []string{"index", "created_at", "type", "amount", "counterparty", "note"}

// timeLayout — формат created_at в выгрузках.
const timeLayout = "2006-01-02 15:04:05"

// History — чтение журнала (ledger.Service).
type History interface {
	History(ctx context.Context, accountID int64, filter ledger.HistoryFilter) ([]*ledger.Record, error)
}

// Accounts — чтение счёта (accounts.Repository).
type Accounts interface {
	FindByID(ctx context.Context, id int64) (*accounts.Account, error)
}

// File — готовый файл выгрузки.
type File struct {
	Name string
	Data []byte
}

// Row — строка выгрузки. Amount — число ровно с двумя знаками.
type Row struct {
	Index        int         `json:"index"`
	CreatedAt    string      `json:"created_at"`
	Type         string      `json:"type"`
	Amount       json.Number `json:"amount"`
	Counterparty string      `json:"counterparty"`
	Note         string      `json:"note"`
}

// Service формирует выгрузки.
type Service struct {
	history  History
	accounts Accounts
	loc      *time.Location
}

// NewService создаёт сервис выгрузок. loc — пояс для created_at.
func NewService(history History, accts Accounts, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{history: history, accounts: accts, loc: loc}
}

// Export читает всю историю счёта и возвращает CSV и JSON файлы.
func (s *Service) Export(ctx context.Context, accountID int64) ([]File, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	records, err := s.history.History(ctx, accountID, ledger.HistoryFilter{})
	if err != nil {
		return nil, err
	}

	rows := Rows(records, s.loc)

	var csvBuf, jsonBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, rows); err != nil {
		return nil, err
	}
	if err := WriteJSON(&jsonBuf, rows); err != nil {
		return nil, err
	}

	base := "history_" + acc.Username
	return []File{
		{Name: base + ".csv", Data: csvBuf.Bytes()},
		{Name: base + ".json", Data: jsonBuf.Bytes()},
	}, nil
}

// Rows нумерует записи с единицы и форматирует поля.
func Rows(records []*ledger.Record, loc *time.Location) []Row {
	rows := make([]Row, 0, len(records))
	for i, r := range records {
		rows = append(rows, Row{
			Index:        i + 1,
			CreatedAt:    r.CreatedAt.In(loc).Format(timeLayout),
			Type:         string(r.Type),
			Amount:       json.Number(common.FormatAmount(r.Amount)),
			Counterparty: r.Counterparty,
			Note:         r.Note,
		})
	}
	return rows
}

// WriteCSV пишет строки в CSV с заголовком.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("ошибка записи заголовка CSV: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Index),
			r.CreatedAt,
			r.Type,
			r.Amount.String(),
			r.Counterparty,
			r.Note,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("ошибка записи строки CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON пишет строки JSON-массивом. Пустая история — [].
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("ошибка записи JSON: %w", err)
	}
	return nil
}
