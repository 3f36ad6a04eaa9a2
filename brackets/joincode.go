package brackets

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	JoinCodeLength  = 6
	MaxCodeAttempts = 100

	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

var ErrGenerationExhausted = errors.New("could not generate a unique join code")

// CodeChecker сообщает, занят ли код какой-либо активной командой.
type CodeChecker func(ctx context.Context, code string) (bool, error)

// GenerateJoinCode выдает код вида AAA000, которого нет среди активных команд.
// После MaxCodeAttempts неудачных попыток возвращает ErrGenerationExhausted.
func GenerateJoinCode(ctx context.Context, exists CodeChecker) (string, error) {
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := randomJoinCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check join code uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, MaxCodeAttempts)
}

func randomJoinCode() (string, error) {
	var sb strings.Builder
	sb.Grow(JoinCodeLength)
	for i := 0; i < JoinCodeLength/2; i++ {
		c, err := randomChar(codeLetters)
		if err != nil {
			return "", err
		}
		sb.WriteByte(c)
	}
	for i := 0; i < JoinCodeLength/2; i++ {
		c, err := randomChar(codeDigits)
		if err != nil {
			return "", err
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

// ValidateJoinCode проверяет формат: ровно 3 латинские заглавные буквы и 3 цифры.
func ValidateJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for i := 0; i < JoinCodeLength; i++ {
		c := code[i]
		if i < JoinCodeLength/2 {
			if c < 'A' || c > 'Z' {
				return false
			}
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
