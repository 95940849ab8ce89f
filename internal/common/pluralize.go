// Package common — pluralize.go содержит функции
// для правильного склонения русских числительных.
package common

import "math"

// Pluralize выбирает форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func Pluralize(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeSeconds возвращает форму слова «секунда».
//
// Примеры:
//
//	PluralizeSeconds(1)  → "секунду"
//	PluralizeSeconds(3)  → "секунды"
//	PluralizeSeconds(60) → "секунд"
func PluralizeSeconds(n int64) string {
	return Pluralize(n, "секунду", "секунды", "секунд")
}

// PluralizeAttempts возвращает форму слова «попытка».
func PluralizeAttempts(n int) string {
	return Pluralize(int64(n), "попытка", "попытки", "попыток")
}

// PluralizeOperations возвращает форму слова «операция».
func PluralizeOperations(n int) string {
	return Pluralize(int64(n), "операция", "операции", "операций")
}
