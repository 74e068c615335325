package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Texter is implemented by values with a human-readable rendering.
type Texter interface {
	WriteText(w io.Writer) error
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Write renders v. Text output falls back to JSON for values that are not
// Texters.
func Write(w io.Writer, format Format, v any) error {
	if format == FormatText {
		if t, ok := v.(Texter); ok {
			return t.WriteText(w)
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
