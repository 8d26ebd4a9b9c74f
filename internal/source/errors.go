package source

import (
	"errors"
	"fmt"
)

// DecodeError reports a malformed tree document with its position.
type DecodeError struct {
	File    string
	Line    int
	Col     int
	Message string
}

func (e *DecodeError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("%s: %s", file, e.Message)
}

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
