// Package ledger — service.go: пополнение, снятие, перевод, симуляция перевода.
// Каждая операция — одна транзакция Store: баланс и журнал фиксируются вместе.
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
)

// Service — движок учёта.
type Service struct {
	store Store
}

// NewService создаёт движок учёта.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// OpenAccount создаёт счёт и, если начальный баланс больше нуля,
// запись InitialDeposit. Реализует accounts.Opener.
func (s *Service) OpenAccount(ctx context.Context, acc accounts.NewAccount) (int64, error) {
	var id int64
	err := s.store.Atomic(ctx, func(tx Tx) error {
		var err error
		id, err = tx.CreateAccount(ctx, acc)
		if err != nil {
			return err
		}
		if !acc.InitialBalance.IsPositive() {
			return nil
		}
		_, err = tx.Append(ctx, NewRecord{
			AccountID: id,
			Type:      TypeInitialDeposit,
			Amount:    acc.InitialBalance,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Deposit зачисляет amount на счёт.
// Если баланс превысил бы common.MaxBalance — ErrBalanceLimit, ничего не меняется.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*Receipt, error) {
	if err := common.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var receipt Receipt
	err := s.store.Atomic(ctx, func(tx Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}

		balance := common.RoundMoney(acc.Balance.Add(amount))
		if err := common.CheckBalance(balance); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, acc.ID, balance); err != nil {
			return err
		}
		rec, err := tx.Append(ctx, NewRecord{AccountID: acc.ID, Type: TypeDeposit, Amount: amount})
		if err != nil {
			return err
		}

		receipt = Receipt{Balance: balance, Records: []*Record{rec}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"amount":     amount.StringFixed(common.MoneyScale),
	}).Info("Пополнение")
	return &receipt, nil
}

// Withdraw списывает amount. Если денег не хватает — ErrInsufficientFunds, ничего не меняется.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*Receipt, error) {
	if err := common.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var receipt Receipt
	err := s.store.Atomic(ctx, func(tx Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(acc.Balance) {
			return common.ErrInsufficientFunds
		}

		balance := common.RoundMoney(acc.Balance.Sub(amount))
		if err := tx.SetBalance(ctx, acc.ID, balance); err != nil {
			return err
		}
		rec, err := tx.Append(ctx, NewRecord{AccountID: acc.ID, Type: TypeWithdraw, Amount: amount})
		if err != nil {
			return err
		}

		receipt = Receipt{Balance: balance, Records: []*Record{rec}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"amount":     amount.StringFixed(common.MoneyScale),
	}).Info("Снятие")
	return &receipt, nil
}

// Transfer переводит amount со счёта fromID пользователю toUsername.
//
// Проверки:
//   - сумма положительная, не больше двух знаков
//   - получатель существует (иначе ErrRecipientNotFound)
//   - получатель не сам отправитель (ErrSelfTransfer)
//   - у отправителя хватает денег (ErrInsufficientFunds)
//   - баланс получателя не превысит common.MaxBalance (ErrBalanceLimit)
//
// Обе строки блокируются в порядке возрастания id, так встречные
// переводы не встают в deadlock. Записи TransferOut и TransferIn
// ссылаются друг на друга через counterparty.
func (s *Service) Transfer(ctx context.Context, fromID int64, toUsername string, amount decimal.Decimal) (*Receipt, error) {
	toUsername = strings.TrimPrefix(strings.TrimSpace(toUsername), "@")
	if err := accounts.ValidateUsername(toUsername); err != nil {
		return nil, err
	}
	if err := common.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var receipt Receipt
	var recipientID int64
	err := s.store.Atomic(ctx, func(tx Tx) error {
		recipient, err := tx.FindAccountByUsername(ctx, toUsername)
		if err != nil {
			if errors.Is(err, common.ErrAccountNotFound) {
				return common.ErrRecipientNotFound
			}
			return err
		}
		if recipient.ID == fromID {
			return common.ErrSelfTransfer
		}
		recipientID = recipient.ID

		sender, recipient, err := lockPair(ctx, tx, fromID, recipient.ID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(sender.Balance) {
			return common.ErrInsufficientFunds
		}

		senderBalance := common.RoundMoney(sender.Balance.Sub(amount))
		recipientBalance := common.RoundMoney(recipient.Balance.Add(amount))
		if err := common.CheckBalance(recipientBalance); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, sender.ID, senderBalance); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, recipient.ID, recipientBalance); err != nil {
			return err
		}

		out, err := tx.Append(ctx, NewRecord{
			AccountID:    sender.ID,
			Type:         TypeTransferOut,
			Amount:       amount,
			Counterparty: recipient.Username,
		})
		if err != nil {
			return err
		}
		in, err := tx.Append(ctx, NewRecord{
			AccountID:    recipient.ID,
			Type:         TypeTransferIn,
			Amount:       amount,
			Counterparty: sender.Username,
		})
		if err != nil {
			return err
		}

		receipt = Receipt{Balance: senderBalance, Records: []*Record{out, in}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"from":   fromID,
		"to":     recipientID,
		"amount": amount.StringFixed(common.MoneyScale),
	}).Info("Перевод выполнен")
	return &receipt, nil
}

// lockPair блокирует два счёта в порядке возрастания id
// и возвращает их в порядке (from, to).
func lockPair(ctx context.Context, tx Tx, fromID, toID int64) (*accounts.Account, *accounts.Account, error) {
	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := tx.LockAccount(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := tx.LockAccount(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// RecordSimulatedTransfer добавляет запись FakeTransfer.
// Баланс не проверяется и не меняется, существование получателя не проверяется.
func (s *Service) RecordSimulatedTransfer(ctx context.Context, accountID int64, toUsername string, amount decimal.Decimal) (*Record, error) {
	toUsername = strings.TrimPrefix(strings.TrimSpace(toUsername), "@")
	if toUsername == "" {
		return nil, common.NewValidationError("username", "не указан получатель")
	}
	if err := common.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var rec *Record
	err := s.store.Atomic(ctx, func(tx Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		rec, err = tx.Append(ctx, NewRecord{
			AccountID:    acc.ID,
			Type:         TypeFakeTransfer,
			Amount:       amount,
			Counterparty: toUsername,
			Note:         SimulatedNote,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"to":         toUsername,
	}).Debug("Симуляция перевода записана")
	return rec, nil
}

// History возвращает записи журнала счёта.
func (s *Service) History(ctx context.Context, accountID int64, filter HistoryFilter) ([]*Record, error) {
	return s.store.History(ctx, accountID, filter)
}
