// Package accounts управляет счетами: учётные данные, вход с защитой от перебора, сессии.
// models.go описывает структуры для работы с таблицами accounts и login_logs.
package accounts

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/ledger-bot/internal/common"
)

// Account представляет счёт в базе данных.
// Баланс меняет только движок учёта, состояние входа — только этот пакет.
type Account struct {
	ID             int64           `db:"id"`              // Назначается БД, не меняется
	Username       string          `db:"username"`        // Уникальное имя, 3-20 символов
	PinHash        string          `db:"pin_hash"`        // Argon2id хеш PIN (с параметрами)
	Salt           string          `db:"salt"`            // 16 случайных символов, задаётся при создании
	Balance        decimal.Decimal `db:"balance"`         // Баланс, всегда >= 0
	FailedAttempts int             `db:"failed_attempts"` // Неудачные попытки подряд (0..2)
	LockedUntil    int64           `db:"locked_until"`    // Unix-время снятия блокировки, 0 — не заблокирован
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// IsLocked сообщает, действует ли блокировка в момент now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil > now.Unix()
}

// NewAccount — данные для создания счёта.
// PinHash и Salt уже вычислены, InitialBalance >= 0.
type NewAccount struct {
	Username       string
	PinHash        string
	Salt           string
	InitialBalance decimal.Decimal
}

// LoginAttempt — запись аудита попытки входа (таблица login_logs).
// Ядро её только пишет, никогда не читает.
type LoginAttempt struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	LoginTime time.Time `db:"login_time"`
	Success   bool      `db:"success"`
	Channel   string    `db:"channel"` // Откуда пришла попытка: telegram, cli
}

// Каналы, из которых приходят попытки входа
const (
	ChannelTelegram = "telegram"
	ChannelCLI      = "cli"
)

// LoginOutcome — исход попытки входа.
type LoginOutcome string

// Возможные исходы входа
const (
	OutcomeSuccess         LoginOutcome = "success"           // PIN верный, счёт разблокирован
	OutcomeInvalid         LoginOutcome = "invalid"           // PIN неверный, попытки остались
	OutcomeLocked          LoginOutcome = "locked"            // Счёт уже заблокирован
	OutcomeTooManyAttempts LoginOutcome = "too_many_attempts" // Эта попытка заблокировала счёт
)

// LoginResult — результат Login. Бизнес-исходы возвращаются здесь, а не ошибкой.
type LoginResult struct {
	Outcome           LoginOutcome
	Account           *Account      // Состояние счёта после попытки
	AttemptsRemaining int           // Для OutcomeInvalid
	LockedFor         time.Duration // Для OutcomeLocked и OutcomeTooManyAttempts
}

// Err переводит неуспешный исход в типизированную ошибку из common.
// Для OutcomeSuccess возвращает nil.
func (r *LoginResult) Err() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeInvalid:
		return &common.InvalidCredentialsError{AttemptsRemaining: r.AttemptsRemaining}
	case OutcomeLocked:
		return &common.LockedError{Remaining: r.LockedFor}
	case OutcomeTooManyAttempts:
		return common.ErrTooManyAttempts
	default:
		return common.ErrInvalidCredentials
	}
}

// Session — авторизованная сессия пользователя бота.
type Session struct {
	AccountID int64
	Username  string
	ExpiresAt time.Time
}
