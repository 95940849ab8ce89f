// Package accounts — service.go содержит регистрацию и state-машину входа:
// 3 неудачные попытки подряд = блокировка счёта на 60 секунд.
package accounts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
)

// Store — то, что сервису нужно от хранилища счетов.
// Реализуется *Repository, в тестах — фейком в памяти.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	UpdateAuthState(ctx context.Context, acc *Account) error
	LogLogin(ctx context.Context, accountID int64, success bool, channel string, at time.Time) error
}

// Opener атомарно создаёт счёт вместе с записью InitialDeposit.
// Реализуется движком учёта (ledger.Service).
type Opener interface {
	OpenAccount(ctx context.Context, acc NewAccount) (int64, error)
}

// Policy — параметры защиты от перебора PIN.
type Policy struct {
	MaxFailedAttempts int           // Сколько неудач подряд до блокировки
	LockDuration      time.Duration // На сколько блокируется счёт
}

// DefaultPolicy — 3 попытки, блокировка на минуту.
func DefaultPolicy() Policy {
	return Policy{MaxFailedAttempts: 3, LockDuration: 60 * time.Second}
}

// Service управляет регистрацией и входом.
type Service struct {
	store  Store
	opener Opener
	hasher *Hasher
	policy Policy
	now    func() time.Time
}

// NewService создаёт сервис счетов.
func NewService(store Store, opener Opener, hasher *Hasher, policy Policy) *Service {
	if policy.MaxFailedAttempts <= 0 {
		policy.MaxFailedAttempts = DefaultPolicy().MaxFailedAttempts
	}
	if policy.LockDuration <= 0 {
		policy.LockDuration = DefaultPolicy().LockDuration
	}
	return &Service{
		store:  store,
		opener: opener,
		hasher: hasher,
		policy: policy,
		now:    time.Now,
	}
}

// SetClock подменяет источник времени (для тестов).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Register создаёт счёт с начальным депозитом и возвращает его ID.
// Имя и PIN проверяются до обращения к БД; занятое имя — ErrDuplicateUsername.
func (s *Service) Register(ctx context.Context, username, pin string, initial decimal.Decimal) (int64, error) {
	if err := ValidateUsername(username); err != nil {
		return 0, err
	}
	if err := ValidatePin(pin); err != nil {
		return 0, err
	}
	if initial.IsNegative() {
		return 0, common.NewValidationError("initial_deposit", "не может быть отрицательным")
	}
	if !initial.IsZero() {
		if err := common.ValidateAmount(initial); err != nil {
			return 0, err
		}
	}

	salt, err := GenerateSalt()
	if err != nil {
		return 0, err
	}

	id, err := s.opener.OpenAccount(ctx, NewAccount{
		Username:       username,
		PinHash:        s.hasher.Derive(pin, salt),
		Salt:           salt,
		InitialBalance: common.RoundMoney(initial),
	})
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"account_id": id,
		"username":   username,
		"initial":    initial.StringFixed(common.MoneyScale),
	}).Info("Счёт зарегистрирован")

	return id, nil
}

// Login проверяет PIN и ведёт счётчик неудачных попыток.
//
// Исходы:
//   - счёт заблокирован: OutcomeLocked, состояние не меняется
//   - неверный PIN: failed_attempts+1; на третьей неудаче блокировка
//     на Policy.LockDuration, счётчик сбрасывается, OutcomeTooManyAttempts
//   - верный PIN: счётчик и блокировка сбрасываются, OutcomeSuccess
//
// Каждая попытка по существующему счёту пишется в login_logs.
// Ошибка возвращается только для невалидного ввода, несуществующего счёта и сбоев БД.
func (s *Service) Login(ctx context.Context, username, pin, channel string) (*LoginResult, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}

	acc, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if acc.IsLocked(now) {
		s.logAttempt(ctx, acc.ID, false, channel, now)
		return &LoginResult{
			Outcome:   OutcomeLocked,
			Account:   acc,
			LockedFor: time.Unix(acc.LockedUntil, 0).Sub(now),
		}, nil
	}

	if !s.hasher.Verify(pin, acc.Salt, acc.PinHash) {
		result := &LoginResult{Account: acc}
		acc.FailedAttempts++
		if acc.FailedAttempts >= s.policy.MaxFailedAttempts {
			acc.FailedAttempts = 0
			acc.LockedUntil = now.Unix() + int64(s.policy.LockDuration/time.Second)
			result.Outcome = OutcomeTooManyAttempts
			result.LockedFor = s.policy.LockDuration
		} else {
			result.Outcome = OutcomeInvalid
			result.AttemptsRemaining = s.policy.MaxFailedAttempts - acc.FailedAttempts
		}

		if err := s.store.UpdateAuthState(ctx, acc); err != nil {
			return nil, err
		}
		s.logAttempt(ctx, acc.ID, false, channel, now)

		log.WithFields(log.Fields{
			"account_id": acc.ID,
			"outcome":    result.Outcome,
		}).Warn("Неудачная попытка входа")
		return result, nil
	}

	acc.FailedAttempts = 0
	acc.LockedUntil = 0
	if err := s.store.UpdateAuthState(ctx, acc); err != nil {
		return nil, err
	}
	s.logAttempt(ctx, acc.ID, true, channel, now)

	return &LoginResult{Outcome: OutcomeSuccess, Account: acc}, nil
}

// Get возвращает счёт по ID.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.store.FindByID(ctx, id)
}

// logAttempt пишет аудит. Сбой записи не меняет исход входа.
func (s *Service) logAttempt(ctx context.Context, accountID int64, success bool, channel string, at time.Time) {
	if err := s.store.LogLogin(ctx, accountID, success, channel, at); err != nil {
		log.WithError(err).WithField("account_id", accountID).Warn("Не удалось записать попытку входа")
	}
}
