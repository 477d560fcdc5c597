package passwordgen

import (
	"errors"
	"fmt"

	"github.com/gravitational/trace"
)

// spec.md §4.J/§7's password-generator error taxonomy: LengthTooShort and
// GenerationFailed carry a value callers need back (the minimum length,
// the attempt count), so they get dedicated error types rather than
// trace's string-only constructors; NoCharacterSets needs no payload and
// uses trace.BadParameter, and RngError wraps the CSPRNG's own error with
// trace.Wrap.

// LengthTooShortError reports that the requested length is below the
// minimum viable length for the selected character sets.
type LengthTooShortError struct {
	Minimum int
}

func (e *LengthTooShortError) Error() string {
	return fmt.Sprintf("password length must be at least %d characters", e.Minimum)
}

// GenerationFailedError reports that no draw satisfied RequireAllSets
// within the attempt budget.
type GenerationFailedError struct {
	Attempts int
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("failed to generate a password meeting all requirements after %d attempts", e.Attempts)
}

// IsLengthTooShort reports whether err is a LengthTooShortError.
func IsLengthTooShort(err error) bool {
	var e *LengthTooShortError
	return errors.As(err, &e)
}

// IsGenerationFailed reports whether err is a GenerationFailedError.
func IsGenerationFailed(err error) bool {
	var e *GenerationFailedError
	return errors.As(err, &e)
}

// ErrNoCharacterSets is returned when no character class is enabled.
func ErrNoCharacterSets() error {
	return trace.BadParameter("no character sets selected")
}

// ErrRNG wraps a CSPRNG read failure.
func ErrRNG(cause error) error {
	return trace.Wrap(cause, "reading from CSPRNG")
}
