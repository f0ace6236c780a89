package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

var (
	titlePattern     = regexp.MustCompile(`title="([^"]+)"`)
	highlightPattern = regexp.MustCompile(`\{([^}]+)\}`)
)

// CodeInfo is the parsed info string of a fenced code block:
// `lang title="name" {1,3-5}`.
type CodeInfo struct {
	Language  string
	Title     string
	Highlight map[int]bool
}

// ParseCodeInfo parses a fenced code info string. An empty info string
// means plaintext.
func ParseCodeInfo(info string) CodeInfo {
	if info == "" {
		info = "plaintext"
	}
	ci := CodeInfo{Highlight: map[int]bool{}}
	lang := info

	if m := titlePattern.FindStringSubmatch(info); m != nil {
		ci.Title = m[1]
		lang = strings.TrimSpace(titlePattern.ReplaceAllLiteralString(lang, ""))
	}
	if m := highlightPattern.FindStringSubmatch(info); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			if start, end, ok := strings.Cut(part, "-"); ok {
				a, errA := strconv.Atoi(strings.TrimSpace(start))
				b, errB := strconv.Atoi(strings.TrimSpace(end))
				if errA != nil || errB != nil {
					continue
				}
				for i := a; i <= b; i++ {
					ci.Highlight[i] = true
				}
				continue
			}
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				ci.Highlight[n] = true
			}
		}
		lang = strings.TrimSpace(highlightPattern.ReplaceAllLiteralString(lang, ""))
	}
	ci.Language = lang
	return ci
}

// Label is the header label: the language with its first letter upper-cased.
func (ci CodeInfo) Label() string {
	if ci.Language == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(ci.Language)
	return strings.ToUpper(string(r)) + ci.Language[size:]
}

type codeBlockRenderer struct {
	prefix string
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindFencedCodeBlock, r.renderCode)
	reg.Register(gmast.KindCodeBlock, r.renderCode)
}

func (r *codeBlockRenderer) renderCode(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkSkipChildren, nil
	}

	var info string
	if fc, ok := node.(*gmast.FencedCodeBlock); ok && fc.Info != nil {
		info = string(fc.Info.Segment.Value(source))
	}
	ci := ParseCodeInfo(info)

	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	_, _ = w.WriteString(r.block(ci, strings.TrimSuffix(code.String(), "\n")))
	return gmast.WalkSkipChildren, nil
}

const lineNumbersButton = `<button class="toggle-line-numbers" aria-label="Toggle line numbers" title="Toggle line numbers">
      <svg width="16" height="16" viewBox="0 0 16 16" fill="none" stroke="currentColor" stroke-width="2">
        <line x1="4" y1="3" x2="14" y2="3"></line>
        <line x1="4" y1="8" x2="14" y2="8"></line>
        <line x1="4" y1="13" x2="14" y2="13"></line>
        <text x="1" y="5" font-size="6" fill="currentColor">1</text>
        <text x="1" y="10" font-size="6" fill="currentColor">2</text>
        <text x="1" y="15" font-size="6" fill="currentColor">3</text>
      </svg>
    </button>`

func (r *codeBlockRenderer) block(ci CodeInfo, code string) string {
	header := fmt.Sprintf(`<span class="code-block-language">%s</span>`, ci.Label())
	if ci.Title != "" {
		header = fmt.Sprintf(`<span class="code-block-title">%s</span>`, ci.Title)
	}

	var body strings.Builder
	for i, line := range r.highlight(ci.Language, code) {
		n := i + 1
		class := "code-line"
		if ci.Highlight[n] {
			class += " highlighted-line"
		}
		fmt.Fprintf(&body, `<span class="%s" data-line="%d">%s</span>`, class, n, line)
	}

	return fmt.Sprintf(`<div class="code-block-container" data-language="%s">
  <div class="code-block-header">
    %s
    %s
  </div>
  <pre class="chroma show-line-numbers"><code class="language-%s">%s</code></pre>
</div>
`, ci.Language, header, lineNumbersButton, ci.Language, body.String())
}

// highlight tokenises code and returns one HTML fragment per source line.
func (r *codeBlockRenderer) highlight(lang, code string) []string {
	want := strings.Count(code, "\n") + 1

	lexer := lexerFor(lang)
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		out := strings.Split(html.EscapeString(code), "\n")
		return out
	}

	out := make([]string, 0, want)
	for _, tokens := range chroma.SplitTokensIntoLines(it.Tokens()) {
		var b strings.Builder
		for _, tok := range tokens {
			value := strings.TrimSuffix(tok.Value, "\n")
			if value == "" {
				continue
			}
			escaped := html.EscapeString(value)
			if cls := tokenClass(tok.Type); cls != "" {
				fmt.Fprintf(&b, `<span class="%s%s">%s</span>`, r.prefix, cls, escaped)
			} else {
				b.WriteString(escaped)
			}
		}
		out = append(out, b.String())
	}
	for len(out) < want {
		out = append(out, "")
	}
	return out[:want]
}

func lexerFor(lang string) chroma.Lexer {
	if lang != "" {
		if l := lexers.Get(lang); l != nil {
			return l
		}
	}
	if l := lexers.Get("plaintext"); l != nil {
		return l
	}
	return lexers.Fallback
}

func tokenClass(t chroma.TokenType) string {
	for t != 0 {
		if cls, ok := chroma.StandardTypes[t]; ok {
			return cls
		}
		t = t.Parent()
	}
	return chroma.StandardTypes[t]
}
