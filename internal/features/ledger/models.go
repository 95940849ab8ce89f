// Package ledger — движок учёта: атомарное изменение баланса
// вместе с записью в журнал операций (таблица transactions).
// models.go описывает записи журнала и их типы.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType — тип записи журнала. Набор закрыт, совпадает с CHECK в БД.
type TxType string

// Типы записей журнала
const (
	TypeDeposit        TxType = "Deposit"        // Пополнение
	TypeWithdraw       TxType = "Withdraw"       // Снятие
	TypeTransferIn     TxType = "TransferIn"     // Входящий перевод
	TypeTransferOut    TxType = "TransferOut"    // Исходящий перевод
	TypeInitialDeposit TxType = "InitialDeposit" // Начальный депозит при открытии счёта
	TypeFakeTransfer   TxType = "FakeTransfer"   // Симуляция перевода, баланс не меняется
)

// SimulatedNote — пометка записи FakeTransfer.
const SimulatedNote = "симуляция: деньги не переводились"

// Direction — влияние записи на баланс.
type Direction int

// Направления движения денег
const (
	DirectionNone Direction = iota // FakeTransfer
	DirectionIn
	DirectionOut
)

// Direction возвращает направление записи данного типа.
func (t TxType) Direction() Direction {
	switch t {
	case TypeDeposit, TypeInitialDeposit, TypeTransferIn:
		return DirectionIn
	case TypeWithdraw, TypeTransferOut:
		return DirectionOut
	default:
		return DirectionNone
	}
}

// Valid сообщает, входит ли тип в закрытый набор.
func (t TxType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdraw, TypeTransferIn, TypeTransferOut, TypeInitialDeposit, TypeFakeTransfer:
		return true
	}
	return false
}

// Title — название типа для сообщений бота.
func (t TxType) Title() string {
	switch t {
	case TypeDeposit:
		return "Пополнение"
	case TypeWithdraw:
		return "Снятие"
	case TypeTransferIn:
		return "Входящий перевод"
	case TypeTransferOut:
		return "Исходящий перевод"
	case TypeInitialDeposit:
		return "Начальный депозит"
	case TypeFakeTransfer:
		return "Симуляция перевода"
	default:
		return string(t)
	}
}

// Record — запись журнала. Только добавляется, никогда не меняется.
type Record struct {
	ID           int64           `db:"id" json:"id"`
	AccountID    int64           `db:"account_id" json:"account_id"`
	Type         TxType          `db:"type" json:"type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`             // Всегда > 0
	Counterparty string          `db:"counterparty" json:"counterparty"` // Имя второй стороны перевода, иначе пусто
	Note         string          `db:"note" json:"note"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// NewRecord — данные для добавления записи.
type NewRecord struct {
	AccountID    int64
	Type         TxType
	Amount       decimal.Decimal
	Counterparty string
	Note         string
}

// HistoryFilter ограничивает выборку истории.
// Нулевые From/To означают отсутствие границы, интервал [From, To).
type HistoryFilter struct {
	From        time.Time
	To          time.Time
	Limit       int  // 0 — без ограничения
	NewestFirst bool // По умолчанию по возрастанию id
}

// Receipt — результат операции: новый баланс и добавленные записи.
type Receipt struct {
	Balance decimal.Decimal // Баланс счёта инициатора после операции
	Records []*Record
}
