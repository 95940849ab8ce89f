// Package common — money.go содержит разбор и форматирование денежных сумм.
// Все суммы — decimal с двумя знаками после запятой, никакого float64.
package common

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MoneyScale — количество знаков после запятой у всех сумм.
const MoneyScale = 2

// MaxBalance — наибольшее значение, которое вмещает NUMERIC(14,2)
// в столбцах accounts.balance и transactions.amount.
// Сумма операции ограничена тем же значением.
var MaxBalance = decimal.RequireFromString("999999999999.99")

// ParseAmount разбирает строку суммы, введённую пользователем.
//
// Правила:
//   - допускается запятая как разделитель ("12,50")
//   - сумма строго больше нуля
//   - не больше двух знаков после запятой
//   - не больше MaxBalance
//
// Примеры:
//
//	ParseAmount("100")    → 100.00
//	ParseAmount("12,5")   → 12.50
//	ParseAmount("0.001")  → ошибка валидации
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "пустая сумма")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "не число")
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return RoundMoney(d), nil
}

// ValidateAmount проверяет, что сумма положительная, имеет не более двух знаков
// и не больше MaxBalance.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: "amount", Reason: ErrInvalidAmount.Error()}
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return NewValidationError("amount", "не больше двух знаков после запятой")
	}
	if d.GreaterThan(MaxBalance) {
		return NewValidationError("amount", "не больше "+MaxBalance.StringFixed(MoneyScale))
	}
	return nil
}

// CheckBalance возвращает ErrBalanceLimit, если баланс не помещается в столбец.
func CheckBalance(balance decimal.Decimal) error {
	if balance.GreaterThan(MaxBalance) {
		return ErrBalanceLimit
	}
	return nil
}

// RoundMoney приводит значение к шкале MoneyScale.
// Вызывается после каждой арифметической операции над балансом.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FormatMoney форматирует сумму в валюте отображения.
// Пример: FormatMoney(100, "USD") → "$100.00"
func FormatMoney(d decimal.Decimal, currency string) string {
	minor := RoundMoney(d).Shift(MoneyScale).IntPart()
	return money.New(minor, currency).Display()
}

// FormatAmount возвращает сумму без символа валюты, ровно с двумя знаками.
// Используется в выгрузках CSV/JSON.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
