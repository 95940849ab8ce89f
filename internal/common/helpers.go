// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: деньги, русская плюрализация, работа с месяцами и временем.
package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// LoadLocation загружает часовой пояс по имени.
// Если не удалось (нет tzdata в контейнере) — возвращает UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).WithField("timezone", name).Warn("Не удалось загрузить часовой пояс, используем UTC")
		return time.UTC
	}
	return loc
}

// ParseYearMonth разбирает месяц выписки в формате YYYY-MM.
//
// Правила: ровно 7 символов, дефис на 5-й позиции, год >= 1970, месяц 1..12.
//
// Примеры:
//
//	ParseYearMonth("2026-09") → 2026, 9
//	ParseYearMonth("2026-9")  → ошибка
func ParseYearMonth(s string) (int, time.Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return 0, 0, NewValidationError("month", "ожидается формат YYYY-MM")
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, 0, NewValidationError("month", "некорректный год")
	}
	month, err := strconv.Atoi(s[5:])
	if err != nil {
		return 0, 0, NewValidationError("month", "некорректный месяц")
	}
	if year < 1970 || month < 1 || month > 12 {
		return 0, 0, NewValidationError("month", "год от 1970, месяц от 1 до 12")
	}
	return year, time.Month(month), nil
}

// MonthRange возвращает полуоткрытый интервал [начало месяца, начало следующего).
// time.Date сам нормализует декабрь+1 в январь следующего года.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return start, end
}

// PreviousMonth возвращает год и месяц, предшествующие моменту now.
// Используется ежемесячной задачей генерации выписок.
func PreviousMonth(now time.Time) (int, time.Month) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// FormatYearMonth форматирует месяц как "2026-09".
func FormatYearMonth(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" в заданном поясе.
// Используется для отображения дат транзакций.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
