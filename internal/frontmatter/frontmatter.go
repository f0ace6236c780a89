// Package frontmatter separates `---` delimited YAML front matter from a
// Markdown body and decodes it into an attribute map.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a front
// matter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Matter is a decoded document: raw YAML, attributes and Markdown body.
type Matter struct {
	Raw        []byte
	Attributes map[string]any
	Body       []byte
	Had        bool
}

// Split separates YAML front matter from the Markdown body.
//
// If the document does not start with a delimiter line, had is false and body
// is the full input. A closing delimiter at end of input without a trailing
// newline is accepted.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	rest := content[start:]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	if bytes.Equal(rest, []byte("---")) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
	}
	tail := []byte(nl + "---")
	if bytes.HasSuffix(rest, tail) {
		return rest[:len(rest)-len(tail)+len(nl)], []byte{}, true, nil
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// ParseYAML parses raw YAML front matter (without delimiters) into a map.
func ParseYAML(fm []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(fm)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Parse splits and decodes content. An unterminated front matter block is
// treated as no front matter at all; malformed YAML is an error.
func Parse(content []byte) (*Matter, error) {
	fm, body, had, err := Split(content)
	if errors.Is(err, ErrMissingClosingDelimiter) {
		return &Matter{Attributes: map[string]any{}, Body: content}, nil
	}
	if err != nil {
		return nil, err
	}
	attrs, err := ParseYAML(fm)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	return &Matter{Raw: fm, Attributes: attrs, Body: body, Had: had}, nil
}

// String returns the attribute key as a string, or "" when absent or not a
// scalar.
func String(attrs map[string]any, key string) string {
	v, ok := attrs[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case int, int64, float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
