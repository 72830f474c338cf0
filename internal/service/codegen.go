package service

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	codeLetters = "ABCD"
	codeDigits  = "0123456789"
	codeLength  = 4

	// maxGenerateAttempts bounds regeneration when the exclusion set covers
	// most of the code space.
	maxGenerateAttempts = 10000
)

var ErrCodeSpaceExhausted = errors.New("no unused access code found")

// IntN is the randomness source for code generation. *rand.Rand from
// math/rand/v2 satisfies it.
type IntN interface {
	IntN(n int) int
}

type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}

// CodeSet answers membership for codes that must not be returned.
type CodeSet interface {
	Contains(code string) bool
}

// StringSet is a map-backed CodeSet.
type StringSet map[string]struct{}

func NewStringSet(codes ...string) StringSet {
	s := make(StringSet, len(codes))
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

func (s StringSet) Add(code string) {
	s[code] = struct{}{}
}

func (s StringSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// CodeGenerator produces 4-symbol keypad codes over A-D and 0-9. Every code
// holds at least one letter and one digit.
type CodeGenerator struct {
	rng IntN
}

// NewCodeGenerator returns a generator drawing from rng, or from crypto/rand
// when rng is nil.
func NewCodeGenerator(rng IntN) *CodeGenerator {
	if rng == nil {
		rng = cryptoSource{}
	}
	return &CodeGenerator{rng: rng}
}

// Generate returns a code not contained in existing. A collision discards the
// whole candidate and starts over. existing is never modified.
func (g *CodeGenerator) Generate(existing CodeSet) (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		code := g.candidate()
		if existing == nil || !existing.Contains(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (g *CodeGenerator) candidate() string {
	buf := make([]byte, codeLength)
	buf[0] = g.pick(codeLetters)
	buf[1] = g.pick(codeDigits)
	for i := 2; i < codeLength; i++ {
		if g.rng.IntN(2) == 0 {
			buf[i] = g.pick(codeLetters)
		} else {
			buf[i] = g.pick(codeDigits)
		}
	}

	for i := len(buf) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

func (g *CodeGenerator) pick(alphabet string) byte {
	return alphabet[g.rng.IntN(len(alphabet))]
}

// IsWellFormedCode reports whether code has the shape Generate produces.
func IsWellFormedCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	var letters, digits int
	for i := 0; i < len(code); i++ {
		switch c := code[i]; {
		case c >= 'A' && c <= 'D':
			letters++
		case c >= '0' && c <= '9':
			digits++
		default:
			return false
		}
	}
	return letters > 0 && digits > 0
}
