package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// marshalText converts v to JSON TEXT for storage. HTML escaping is off so
// shell text such as 2>&1 is stored as written.
func marshalText(v any, what string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// marshalWarnings stores nil and empty slices alike as [].
func marshalWarnings(ws []verify.Violation) (string, error) {
	if len(ws) == 0 {
		return "[]", nil
	}
	return marshalText(ws, "warnings")
}

func marshalFixes(fixes []purify.Fix) (string, error) {
	if len(fixes) == 0 {
		return "[]", nil
	}
	return marshalText(fixes, "fixes")
}

// unmarshalWarnings returns an empty slice, never nil.
func unmarshalWarnings(data string) ([]verify.Violation, error) {
	ws := []verify.Violation{}
	if data == "" || data == "[]" {
		return ws, nil
	}
	if err := json.Unmarshal([]byte(data), &ws); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	return ws, nil
}

func unmarshalFixes(data string) ([]purify.Fix, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var fixes []purify.Fix
	if err := json.Unmarshal([]byte(data), &fixes); err != nil {
		return nil, fmt.Errorf("unmarshal fixes: %w", err)
	}
	return fixes, nil
}
