// Package validation содержит функции валидации и разбора пользовательского ввода.
package validation

import (
	"errors"
	"strings"
)

const (
	phonePrefix = "996"
	phoneDigits = 12
)

// ErrInvalidPhone возвращается, если номер не приводится к формату 996XXXXXXXXX.
var ErrInvalidPhone = errors.New("phone must match 996XXXXXXXXX")

// NormalizePhone удаляет из номера все нецифровые символы и проверяет формат 996 + 9 цифр.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, ch := range phone {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}

	digits := b.String()
	if len(digits) != phoneDigits || !strings.HasPrefix(digits, phonePrefix) {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// IsValidPhone проверяет, что номер приводится к формату 996XXXXXXXXX.
func IsValidPhone(phone string) bool {
	_, err := NormalizePhone(phone)
	return err == nil
}
