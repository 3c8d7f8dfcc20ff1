// Package strength classifies password strength for securevault.
//
// Classification is deliberately binary: downstream consumers (the vault's
// stored strength tag, the audit log's weak-password sweep) only distinguish
// Weak from Strong, so no intermediate category exists.
package strength

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation is the symbol set counted by the symbols criterion.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Minimum lengths used by the evaluator, counted in runes.
const (
	MinLength   = 8  // below this a password is Weak regardless of other criteria
	BonusLength = 12 // length at which the extra length point is awarded
)

// Classification is the binary strength label stored on credential records.
type Classification string

const (
	Weak   Classification = "Weak"
	Strong Classification = "Strong"
)

// Result is the full evaluation breakdown, one boolean per criterion.
// The CLI strength meter renders these directly.
type Result struct {
	HasUpper  bool
	HasLower  bool
	HasDigit  bool
	HasSymbol bool
	LongBonus bool // length >= BonusLength

	Score          int // sum of the five criteria above, 0-5
	Classification Classification
}

// Check evaluates every criterion for password and returns the breakdown.
// It is a pure function: deterministic, no side effects.
func Check(password string) Result {
	var r Result
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			r.HasUpper = true
		case unicode.IsLower(c):
			r.HasLower = true
		case unicode.IsDigit(c):
			r.HasDigit = true
		case strings.ContainsRune(Punctuation, c):
			r.HasSymbol = true
		}
	}
	length := utf8.RuneCountInString(password)
	r.LongBonus = length >= BonusLength

	for _, met := range []bool{r.HasUpper, r.HasLower, r.HasDigit, r.HasSymbol, r.LongBonus} {
		if met {
			r.Score++
		}
	}

	// Length gate first: anything under MinLength is Weak no matter what.
	if length < MinLength || r.Score < 4 {
		r.Classification = Weak
	} else {
		r.Classification = Strong
	}
	return r
}

// Evaluate returns only the binary classification for password.
func Evaluate(password string) Classification {
	return Check(password).Classification
}
