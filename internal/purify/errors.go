package purify

import (
	"errors"
	"fmt"

	"github.com/roach88/puresh/internal/ast"
)

// PurificationError reports a tree the purifier cannot walk, such as a nil
// statement or an expression variant it does not know.
type PurificationError struct {
	Message string
	Span    ast.Span
}

func (e *PurificationError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("purify: %s: %s", e.Span, e.Message)
	}
	return "purify: " + e.Message
}

// IsPurificationError reports whether err wraps a *PurificationError.
func IsPurificationError(err error) bool {
	var pe *PurificationError
	return errors.As(err, &pe)
}
