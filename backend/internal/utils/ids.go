package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// JoinCodeAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
const JoinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const JoinCodeLength = 8

type UUIDGenerator struct{}

func (g UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type RandomJoinCodeGenerator struct{}

func (g RandomJoinCodeGenerator) NewJoinCode() (string, error) {
	max := big.NewInt(int64(len(JoinCodeAlphabet)))
	var b strings.Builder
	b.Grow(JoinCodeLength)
	for i := 0; i < JoinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(JoinCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeJoinCode uppercases a user-typed code and strips separators.
func NormalizeJoinCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// FormatJoinCode renders an 8 character code as XXXX-XXXX. Other lengths are returned unchanged.
func FormatJoinCode(code string) string {
	if len(code) != JoinCodeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}
