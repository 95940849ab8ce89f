// Package common — errors.go определяет ошибки ядра учёта,
// которые используются во всех модулях.
// Обработчики различают их через errors.Is / errors.As
// и отправляют пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки счетов и входа
var (
	// ErrDuplicateUsername — имя пользователя уже занято
	ErrDuplicateUsername = errors.New("имя пользователя уже занято")
	// ErrAccountNotFound — счёт не найден
	ErrAccountNotFound = errors.New("счёт не найден")
	// ErrAccountLocked — счёт временно заблокирован после неудачных попыток
	ErrAccountLocked = errors.New("счёт временно заблокирован")
	// ErrInvalidCredentials — неверный PIN
	ErrInvalidCredentials = errors.New("неверное имя пользователя или PIN")
	// ErrTooManyAttempts — третья неудачная попытка подряд, счёт заблокирован
	ErrTooManyAttempts = errors.New("слишком много неудачных попыток")
)

// Ошибки операций со счётом
var (
	// ErrInvalidAmount — сумма не положительная или с лишними знаками
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrInsufficientFunds — недостаточно средств на счёте
	ErrInsufficientFunds = errors.New("недостаточно средств на счёте")
	// ErrSelfTransfer — перевод самому себе
	ErrSelfTransfer = errors.New("нельзя переводить самому себе")
	// ErrRecipientNotFound — получатель перевода не существует
	ErrRecipientNotFound = errors.New("получатель не найден")
	// ErrBalanceLimit — после зачисления баланс превысил бы MaxBalance
	ErrBalanceLimit = errors.New("превышен максимальный баланс счёта")
	// ErrStatementNotFound — выписка за месяц ещё не сформирована
	ErrStatementNotFound = errors.New("выписка не найдена")
)

// ErrStoreUnavailable — сбой соединения или транзакции БД.
// Фатальна только для текущей операции, ядро её не повторяет.
var ErrStoreUnavailable = errors.New("хранилище недоступно")

// ValidationError — некорректный ввод (имя, PIN, сумма, месяц).
// Возвращается до любого обращения к БД.
type ValidationError struct {
	Field  string // Какое поле не прошло проверку
	Reason string // Почему
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("некорректное значение %s: %s", e.Field, e.Reason)
}

// NewValidationError создаёт ошибку валидации.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation сообщает, является ли err ошибкой валидации.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// LockedError — попытка входа во время блокировки.
type LockedError struct {
	Remaining time.Duration // Сколько осталось до снятия блокировки
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s, попробуйте через %d сек", ErrAccountLocked, e.RemainingSeconds())
}

// Is позволяет писать errors.Is(err, ErrAccountLocked).
func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// RemainingSeconds округляет оставшееся время вверх до целых секунд.
func (e *LockedError) RemainingSeconds() int64 {
	secs := int64(e.Remaining / time.Second)
	if e.Remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// InvalidCredentialsError — неверный PIN, но попытки ещё остались.
type InvalidCredentialsError struct {
	AttemptsRemaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("%s, осталось попыток: %d", ErrInvalidCredentials, e.AttemptsRemaining)
}

// Is позволяет писать errors.Is(err, ErrInvalidCredentials).
func (e *InvalidCredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

// StoreError оборачивает ошибку драйвера в ErrStoreUnavailable,
// сохраняя исходную ошибку для errors.Is/As.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
