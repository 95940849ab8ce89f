// Package accounts — credentials.go: правила имени и PIN, соль и хеширование PIN.
// PIN хешируется Argon2id с солью счёта, сравнение в постоянном времени.
package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/ledger-bot/internal/common"
)

// Ограничения на имя пользователя и PIN
const (
	UsernameMinLen = 3
	UsernameMaxLen = 20
	PinMinLen      = 4
	PinMaxLen      = 8
	SaltLength     = 16
)

// ValidateUsername: длина 3..20, только латиница, цифры, '_' и '-'.
func ValidateUsername(s string) error {
	if len(s) < UsernameMinLen || len(s) > UsernameMaxLen {
		return common.NewValidationError("username", fmt.Sprintf("длина от %d до %d символов", UsernameMinLen, UsernameMaxLen))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum && c != '_' && c != '-' {
			return common.NewValidationError("username", "допустимы только буквы, цифры, _ и -")
		}
	}
	return nil
}

// ValidatePin: длина 4..8, только цифры.
func ValidatePin(s string) error {
	if len(s) < PinMinLen || len(s) > PinMaxLen {
		return common.NewValidationError("pin", fmt.Sprintf("от %d до %d цифр", PinMinLen, PinMaxLen))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return common.NewValidationError("pin", "только цифры")
		}
	}
	return nil
}

// GenerateSalt возвращает 16 случайных hex-символов из crypto/rand.
func GenerateSalt() (string, error) {
	b := make([]byte, SaltLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashParams — параметры Argon2id.
type HashParams struct {
	Memory      uint32 // КБ
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultHashParams — 64 MB, 3 прохода, 2 потока, ключ 32 байта.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		KeyLength:   32,
	}
}

// Hasher вычисляет и проверяет хеши PIN.
type Hasher struct {
	params HashParams
}

// NewHasher создаёт хешер с заданными параметрами.
func NewHasher(params HashParams) *Hasher {
	if params.KeyLength == 0 {
		params.KeyLength = 32
	}
	return &Hasher{params: params}
}

// Derive вычисляет хеш PIN с солью счёта.
// Одинаковые (pin, salt) при одинаковых параметрах всегда дают одинаковый результат.
//
// Формат: $argon2id$v=19$m=65536,t=3,p=2$<hash_base64>
// Соль хранится отдельно в accounts.salt, поэтому в строку не входит.
func (h *Hasher) Derive(pin, salt string) string {
	p := h.params
	key := argon2.IDKey([]byte(pin), []byte(salt), p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(key))
}

// Verify проверяет PIN по сохранённому хешу.
// Параметры берутся из самого хеша, так что смена ARGON2_* не ломает старые счета.
func (h *Hasher) Verify(pin, salt, encoded string) bool {
	// Парсим хеш: "", "argon2id", "v=19", "m=..,t=..,p=..", "<hash>"
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша PIN")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша PIN")
		return false
	}

	computed := argon2.IDKey([]byte(pin), []byte(salt), iterations, memory, parallelism, uint32(len(expected)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
