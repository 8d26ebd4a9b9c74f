package emit

import (
	"errors"
	"fmt"

	"github.com/roach88/puresh/internal/ast"
)

// EmissionError reports a value the emitter cannot represent as shell text,
// such as a non-integer literal in arithmetic or an invalid variable name.
type EmissionError struct {
	Message string
	Span    ast.Span
}

func (e *EmissionError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("emit: %s: %s", e.Span, e.Message)
	}
	return "emit: " + e.Message
}

// IsEmissionError reports whether err wraps an *EmissionError.
func IsEmissionError(err error) bool {
	var ee *EmissionError
	return errors.As(err, &ee)
}
