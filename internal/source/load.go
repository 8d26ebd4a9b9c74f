package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/puresh/internal/ast"
)

// Format is a tree document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatFor picks a format from a file extension. Unknown extensions are
// read as YAML, which also accepts JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Decode decodes data in the given format.
func Decode(name string, data []byte, format Format) (*ast.Script, error) {
	switch format {
	case FormatCUE:
		return DecodeCUE(name, data)
	case FormatYAML, FormatJSON, "":
		return DecodeYAML(name, data)
	default:
		return nil, &DecodeError{File: name, Message: fmt.Sprintf("unknown format %q", format)}
	}
}

// Document is a loaded tree document. Raw holds the bytes as read, for
// content hashing.
type Document struct {
	Path   string
	Format Format
	Raw    []byte
	Script *ast.Script
}

// Load reads and decodes the tree document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree document: %w", err)
	}
	format := FormatFor(path)
	script, err := Decode(path, data, format)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Format: format, Raw: data, Script: script}, nil
}
