package strength

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Symbols is the fixed punctuation set that earns the symbol bonus.
const Symbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

const (
	// MaxScore is the upper bound of every score.
	MaxScore = 100

	pointsLength8   = 25
	pointsLength6   = 15
	pointsLength4   = 10
	pointsUpper     = 20
	pointsLower     = 20
	pointsDigit     = 20
	pointsSymbol    = 15
	bandWeakFloor   = 30
	bandMediumFloor = 50
	bandStrongFloor = 70
	bandVeryStrong  = 90
)

// Band is the qualitative label derived from a numeric score.
type Band uint8

const (
	// VeryWeak covers scores below 30.
	VeryWeak Band = iota
	// Weak covers scores 30-49.
	Weak
	// Medium covers scores 50-69.
	Medium
	// Strong covers scores 70-89.
	Strong
	// VeryStrong covers scores 90 and above.
	VeryStrong
)

// String returns the hyphenated band label.
func (b Band) String() string {
	switch b {
	case VeryWeak:
		return "very-weak"
	case Weak:
		return "weak"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	case VeryStrong:
		return "very-strong"
	default:
		return "unknown"
	}
}

// Result pairs a score with its band.
type Result struct {
	Score int
	Band  Band
}

// Score grades password on a 0-100 additive scale. It is pure and
// deterministic; the empty password scores 0.
//
// Length is counted in runes, and letter/digit classes follow Unicode
// categories so that non-ASCII passwords are graded consistently.
func Score(password string) int {
	if password == "" {
		return 0
	}

	score := 0

	switch n := utf8.RuneCountInString(password); {
	case n >= 8:
		score += pointsLength8
	case n >= 6:
		score += pointsLength6
	case n >= 4:
		score += pointsLength4
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if !hasSymbol && strings.ContainsRune(Symbols, r) {
			hasSymbol = true
		}
	}

	if hasUpper {
		score += pointsUpper
	}
	if hasLower {
		score += pointsLower
	}
	if hasDigit {
		score += pointsDigit
	}
	if hasSymbol {
		score += pointsSymbol
	}

	if score > MaxScore {
		return MaxScore
	}
	return score
}

// BandOf maps a score onto the canonical five-band scale. Out-of-range
// scores are clamped.
func BandOf(score int) Band {
	switch {
	case score >= bandVeryStrong:
		return VeryStrong
	case score >= bandStrongFloor:
		return Strong
	case score >= bandMediumFloor:
		return Medium
	case score >= bandWeakFloor:
		return Weak
	default:
		return VeryWeak
	}
}

// Evaluate scores password and bands the result.
func Evaluate(password string) Result {
	s := Score(password)
	return Result{Score: s, Band: BandOf(s)}
}

// Meets reports whether password reaches minScore. A non-positive
// minimum always passes.
func Meets(password string, minScore int) bool {
	if minScore <= 0 {
		return true
	}
	return Score(password) >= minScore
}
