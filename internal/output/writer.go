// Package output renders run reports and the effective configuration.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts json, jsonl or yaml (yml), case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "jsonl":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Write renders v to w as a single document.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v, "  ")
	case FormatJSONL:
		return writeJSONLine(w, v)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// AppendJSONL appends v as one line to the file at path, creating it if
// needed.
func AppendJSONL(path string, v any) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := writeJSONLine(f, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return f.Close()
}
