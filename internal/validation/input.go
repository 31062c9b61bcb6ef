package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultToken это ввод, означающий «значение по умолчанию» или «сегодня».
const DefaultToken = "."

// NoneToken это ввод, означающий «нет значения».
const NoneToken = "-"

// DateLayout это основной формат даты.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "02.01.2006"}

var (
	// ErrInvalidAmount возвращается для нечисловой или отрицательной суммы.
	ErrInvalidAmount = errors.New("amount must be a non-negative number")
	// ErrInvalidDate возвращается для даты в неизвестном формате.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD or DD.MM.YYYY")
)

// IsDefault сообщает, что пользователь выбрал значение по умолчанию.
func IsDefault(input string) bool {
	return strings.TrimSpace(input) == DefaultToken
}

// ParseAmount разбирает неотрицательную денежную сумму. Допускается запятая в качестве разделителя.
func ParseAmount(input string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseDate разбирает календарную дату; DefaultToken означает today.
func ParseDate(input string, today time.Time) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == DefaultToken {
		y, m, d := today.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseComment возвращает пустую строку для NoneToken.
func ParseComment(input string) string {
	s := strings.TrimSpace(input)
	if s == NoneToken {
		return ""
	}
	return s
}

// ParseKey разбирает ключ удаления: числовой идентификатор либо имя арендатора.
func ParseKey(input string) (id int64, tenant string, ok bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, "", false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
		return v, "", true
	}
	return 0, s, true
}
