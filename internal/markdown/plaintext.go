package markdown

import (
	"regexp"
	"strings"
)

var plainTextSteps = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), ""},
	{regexp.MustCompile("`[^`]+`"), ""},
	{regexp.MustCompile(`#{1,6}\s+`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`[*_~]`), ""},
	{regexp.MustCompile(`\n+`), " "},
}

// PlainText strips Markdown syntax from body for full-text search: code is
// dropped, link text kept, emphasis markers and heading hashes removed and
// newlines collapsed.
func PlainText(body []byte) string {
	s := string(body)
	for _, step := range plainTextSteps {
		s = step.re.ReplaceAllString(s, step.repl)
	}
	return strings.TrimSpace(s)
}
