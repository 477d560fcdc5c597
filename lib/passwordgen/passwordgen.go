// Package passwordgen implements spec.md §4.J: CSPRNG-backed password
// generation over configurable character classes, entropy estimation,
// and crack-time formatting.
package passwordgen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// maxAttempts bounds the reject-and-redraw loop used to satisfy
// RequireAllSets.
const maxAttempts = 100

// ambiguousChars is the optional exclude set spec.md §4.J names.
const ambiguousChars = "0O1lI"

// CharacterSet is one of the five selectable character classes.
type CharacterSet int

const (
	Lowercase CharacterSet = iota
	Uppercase
	Digits
	Special
	ExtendedSpecial
)

// Chars returns the full (pre-exclusion) character set for cs.
func (cs CharacterSet) Chars() string {
	switch cs {
	case Lowercase:
		return "abcdefghijklmnopqrstuvwxyz"
	case Uppercase:
		return "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	case Digits:
		return "0123456789"
	case Special:
		return `!@#$%^&*-_=+`
	case ExtendedSpecial:
		return `()[]{}|;:,.<>?/~` + "`" + `'"\`
	default:
		return ""
	}
}

// Config configures password generation.
type Config struct {
	Length             int
	UseLowercase       bool
	UseUppercase       bool
	UseDigits          bool
	UseSpecial         bool
	UseExtendedSpecial bool
	ExcludeAmbiguous   bool
	ExcludeChars       string
	RequireAllSets     bool
}

// DefaultConfig mirrors the original implementation's defaults: a
// 16-character password drawing from lowercase, uppercase, digits, and
// special characters, requiring at least one of each.
func DefaultConfig() Config {
	return Config{
		Length:         16,
		UseLowercase:   true,
		UseUppercase:   true,
		UseDigits:      true,
		UseSpecial:     true,
		RequireAllSets: true,
	}
}

// SelectedSets returns the CharacterSet values enabled by cfg, in a
// fixed order.
func (cfg Config) SelectedSets() []CharacterSet {
	var sets []CharacterSet
	if cfg.UseLowercase {
		sets = append(sets, Lowercase)
	}
	if cfg.UseUppercase {
		sets = append(sets, Uppercase)
	}
	if cfg.UseDigits {
		sets = append(sets, Digits)
	}
	if cfg.UseSpecial {
		sets = append(sets, Special)
	}
	if cfg.UseExtendedSpecial {
		sets = append(sets, ExtendedSpecial)
	}
	return sets
}

// MinLength returns the minimum viable length for cfg: 4, or the number
// of selected classes if RequireAllSets demands more.
func (cfg Config) MinLength() int {
	if cfg.RequireAllSets {
		if n := len(cfg.SelectedSets()); n > 4 {
			return n
		}
	}
	return 4
}

// Pool returns the union of every selected class's characters, minus the
// ambiguous set (if excluded) and ExcludeChars.
func (cfg Config) Pool() string {
	var b strings.Builder
	for _, set := range cfg.SelectedSets() {
		b.WriteString(set.Chars())
	}
	return excludeChars(b.String(), cfg)
}

func excludeChars(s string, cfg Config) string {
	drop := func(r rune) bool {
		if cfg.ExcludeAmbiguous && strings.ContainsRune(ambiguousChars, r) {
			return true
		}
		if cfg.ExcludeChars != "" && strings.ContainsRune(cfg.ExcludeChars, r) {
			return true
		}
		return false
	}
	return strings.Map(func(r rune) rune {
		if drop(r) {
			return -1
		}
		return r
	}, s)
}

// Generate draws a password satisfying cfg. Errors are produced by
// ErrNoCharacterSets or ErrRNG, or are a *LengthTooShortError /
// *GenerationFailedError.
func Generate(cfg Config) (string, error) {
	sets := cfg.SelectedSets()
	if len(sets) == 0 {
		return "", ErrNoCharacterSets()
	}

	minLength := cfg.MinLength()
	if cfg.Length < minLength {
		return "", &LengthTooShortError{Minimum: minLength}
	}

	pool := cfg.Pool()
	if pool == "" {
		return "", ErrNoCharacterSets()
	}
	poolRunes := []rune(pool)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		password, err := draw(poolRunes, cfg.Length)
		if err != nil {
			return "", ErrRNG(err)
		}
		if !cfg.RequireAllSets || meetsRequirements(password, sets, cfg) {
			return password, nil
		}
	}

	return "", &GenerationFailedError{Attempts: maxAttempts}
}

// draw picks length runes uniformly from pool using a CSPRNG. Bias from
// modular reduction is negligible for the pool sizes this package deals
// with (at most ~90 characters against a uint32 draw).
func draw(pool []rune, length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	buf := make([]byte, 4)
	for i := 0; i < length; i++ {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		idx := binary.LittleEndian.Uint32(buf) % uint32(len(pool))
		b.WriteRune(pool[idx])
	}
	return b.String(), nil
}

func meetsRequirements(password string, sets []CharacterSet, cfg Config) bool {
	for _, set := range sets {
		setChars := excludeChars(set.Chars(), cfg)
		if setChars == "" {
			continue
		}
		if !strings.ContainsAny(password, setChars) {
			return false
		}
	}
	return true
}

// Entropy returns the Shannon entropy in bits of a password drawn
// uniformly from cfg's pool: H = L × log2(|pool|).
func Entropy(cfg Config, password string) float64 {
	poolSize := len([]rune(cfg.Pool()))
	if poolSize == 0 || len(password) == 0 {
		return 0
	}
	return float64(len([]rune(password))) * math.Log2(float64(poolSize))
}

// Strength is a coarse password-quality bucket.
type Strength int

const (
	VeryWeak Strength = iota
	Weak
	Fair
	Strong
	VeryStrong
)

func (s Strength) String() string {
	switch s {
	case VeryWeak:
		return "very weak"
	case Weak:
		return "weak"
	case Fair:
		return "fair"
	case Strong:
		return "strong"
	case VeryStrong:
		return "very strong"
	default:
		return "unknown"
	}
}

// EvaluateStrength buckets entropyBits per spec.md §4.J's thresholds.
func EvaluateStrength(entropyBits float64) Strength {
	switch {
	case entropyBits < 28:
		return VeryWeak
	case entropyBits < 36:
		return Weak
	case entropyBits < 60:
		return Fair
	case entropyBits < 128:
		return Strong
	default:
		return VeryStrong
	}
}

const (
	secondsPerMinute  = 60.0
	secondsPerHour    = secondsPerMinute * 60.0
	secondsPerDay     = secondsPerHour * 24.0
	secondsPerYear    = secondsPerDay * 365.25
	secondsPerCentury = secondsPerYear * 100.0
)

// EstimateCrackTime returns a human-readable average-case crack-time
// estimate: 2^H / guessesPerSecond / 2, formatted against the
// {1s, 1m, 1h, 1d, 1y, 1c, 1000c, ∞} thresholds.
func EstimateCrackTime(entropyBits, guessesPerSecond float64) string {
	if entropyBits <= 0 || guessesPerSecond <= 0 {
		return "instant"
	}
	seconds := math.Exp2(entropyBits) / guessesPerSecond / 2
	return formatDuration(seconds)
}

func formatDuration(seconds float64) string {
	switch {
	case seconds < 1:
		return "instant"
	case seconds < secondsPerMinute:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < secondsPerHour:
		return fmt.Sprintf("%.0f minutes", seconds/secondsPerMinute)
	case seconds < secondsPerDay:
		return fmt.Sprintf("%.0f hours", seconds/secondsPerHour)
	case seconds < secondsPerYear:
		return fmt.Sprintf("%.0f days", seconds/secondsPerDay)
	case seconds < secondsPerCentury:
		return fmt.Sprintf("%.0f years", seconds/secondsPerYear)
	case seconds < secondsPerCentury*1000:
		return fmt.Sprintf("%.0f centuries", seconds/secondsPerCentury)
	default:
		return "millions of years"
	}
}
