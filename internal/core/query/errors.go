package query

import (
	"errors"
	"fmt"

	"github.com/solatis/queryforge/internal/rules"
)

// Share token error types separate format failures (token never existed)
// from state failures (token exists but is no longer usable).
var (
	ErrShareInvalidFormat    = errors.New("invalid share token format")
	ErrShareUnknownSecret    = errors.New("unknown signing secret ID")
	ErrShareSignatureInvalid = errors.New("invalid share token signature")
	ErrShareExpired          = errors.New("share token has expired")
	ErrShareRevoked          = errors.New("share token has been revoked")
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrPresetNotFound   = errors.New("preset not found")

	// ErrNoStore is returned by persistence-backed operations on a
	// stateless service (nil store).
	ErrNoStore = errors.New("persistence not configured")
)

// ValidationError is returned by Build when the filter tree fails
// validation. It carries the full diagnostic report so callers can relay
// every problem at once instead of fixing them one round-trip at a time.
type ValidationError struct {
	Result rules.Validation
}

func (e *ValidationError) Error() string {
	n := 0
	for _, d := range e.Result.Diagnostics {
		if d.Severity == rules.SeverityError {
			n++
		}
	}
	return fmt.Sprintf("filter validation failed with %d error(s)", n)
}
