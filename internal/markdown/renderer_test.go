package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func render(t *testing.T, src string) string {
	t.Helper()
	out, err := New(Options{}).Render([]byte(src))
	require.NoError(t, err)
	return out
}

func TestRender_PlainMarkdown(t *testing.T) {
	out := render(t, "## Intro\n\nSome *text* and a [link](./a.md).\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.Contains(t, out, "<h2>Intro</h2>")
	require.Contains(t, out, "<em>text</em>")
	require.Contains(t, out, `<a href="./a.md">link</a>`)
	require.Contains(t, out, "<table>")
}

func TestRender_RawHTMLPassesThrough(t *testing.T) {
	out := render(t, "<div class=\"x\">hi</div>\n")
	require.Contains(t, out, `<div class="x">hi</div>`)
}

func TestParseCodeInfo(t *testing.T) {
	ci := ParseCodeInfo(`typescript title="app.ts" {2,4-6}`)
	require.Equal(t, "typescript", ci.Language)
	require.Equal(t, "app.ts", ci.Title)
	require.Equal(t, map[int]bool{2: true, 4: true, 5: true, 6: true}, ci.Highlight)
	require.Equal(t, "Typescript", ci.Label())

	ci = ParseCodeInfo("")
	require.Equal(t, "plaintext", ci.Language)
	require.Empty(t, ci.Title)
	require.Empty(t, ci.Highlight)

	ci = ParseCodeInfo("python {1, x, 3}")
	require.Equal(t, "python", ci.Language)
	require.Equal(t, map[int]bool{1: true, 3: true}, ci.Highlight)
}

func TestRender_CodeBlockLinesAndHighlights(t *testing.T) {
	out := render(t, "```go {2}\npackage main\n\nfunc main() {}\n```\n")

	require.Contains(t, out, `<div class="code-block-container" data-language="go">`)
	require.Contains(t, out, `<span class="code-block-language">Go</span>`)
	require.Contains(t, out, `<span class="code-line" data-line="1">`)
	require.Contains(t, out, `<span class="code-line highlighted-line" data-line="2"></span>`)
	require.Contains(t, out, `<span class="code-line" data-line="3">`)
	require.NotContains(t, out, `data-line="4"`)
	require.Contains(t, out, "toggle-line-numbers")
}

func TestRender_CodeBlockTitleReplacesLanguage(t *testing.T) {
	out := render(t, "```javascript title=\"config.js\"\nconst a = 1;\n```\n")
	require.Contains(t, out, `<span class="code-block-title">config.js</span>`)
	require.NotContains(t, out, "code-block-language")
}

func TestRender_CodeBlockUnknownLanguageEscapes(t *testing.T) {
	out := render(t, "```nosuchlang\n<b>&</b>\n```\n")
	require.Contains(t, out, `data-language="nosuchlang"`)
	require.Contains(t, out, `<span class="code-block-language">Nosuchlang</span>`)
	require.Contains(t, out, "&lt;b&gt;&amp;&lt;/b&gt;")
}

func TestRender_Admonition(t *testing.T) {
	out := render(t, ":::warning Be careful\nThis is **bold**.\n:::\n\nAfter.\n")

	require.Contains(t, out, `<div class="admonition admonition-warning">`)
	require.Contains(t, out, `<span class="admonition-icon">⚠️</span>`)
	require.Contains(t, out, `<span class="admonition-title">Be careful</span>`)
	require.Contains(t, out, "<strong>bold</strong>")
	require.Contains(t, out, "<p>After.</p>")
	require.NotContains(t, out, ":::")
}

func TestRender_AdmonitionDefaultLabels(t *testing.T) {
	for kind, want := range AdmonitionKinds {
		out := render(t, ":::"+kind+"\nbody\n:::\n")
		require.Contains(t, out, `<span class="admonition-title">`+want.Label+`</span>`, kind)
		require.Contains(t, out, `<span class="admonition-icon">`+want.Icon+`</span>`, kind)
	}
}

func TestRender_UnknownOrUnclosedContainerIsText(t *testing.T) {
	out := render(t, ":::bogus\ntext\n:::\n")
	require.NotContains(t, out, "admonition")

	out = render(t, ":::note\nnever closed\n")
	require.NotContains(t, out, "admonition")
	require.Contains(t, out, "never closed")
}

func TestRender_Tabs(t *testing.T) {
	src := ":::tabs\n== npm\n```bash\nnpm install\n```\n== Yarn\nRun `yarn add`.\n:::\n"
	out := render(t, src)

	require.Contains(t, out, `<div class="tabs-container" data-tabs-id="tabs-`)
	require.Contains(t, out, `class="tab-button active"`)
	require.Equal(t, 1, strings.Count(out, `class="tab-button active"`))
	require.Equal(t, 1, strings.Count(out, `class="tab-panel active"`))
	require.Equal(t, 2, strings.Count(out, `class="tab-button`))
	require.Contains(t, out, ">npm</button>")
	require.Contains(t, out, ">Yarn</button>")
	require.Contains(t, out, `data-language="bash"`)
	require.Contains(t, out, "<code>yarn add</code>")

	require.Equal(t, out, render(t, src), "tab output must be deterministic")
}

func TestRender_ThreeTabs(t *testing.T) {
	out := render(t, ":::tabs\n== macOS\nbrew install x\n== Linux\napt install x\n== Windows\nwinget install x\n:::\n")

	require.Equal(t, 3, strings.Count(out, `class="tab-button`))
	require.Equal(t, 3, strings.Count(out, `class="tab-panel`))
	require.Equal(t, 1, strings.Count(out, `class="tab-button active"`))
	require.Equal(t, 1, strings.Count(out, `class="tab-panel active"`))
	require.Less(t, strings.Index(out, `class="tab-button active"`), strings.Index(out, ">macOS</button>"))
	require.Less(t, strings.Index(out, ">macOS</button>"), strings.Index(out, ">Linux</button>"))
	require.Less(t, strings.Index(out, ">Linux</button>"), strings.Index(out, ">Windows</button>"))
	require.Contains(t, out, "winget install x")
}

func TestRender_TabsWithoutHeadingsRenderNothing(t *testing.T) {
	out := render(t, ":::tabs\njust text\n:::\n")
	require.NotContains(t, out, "tabs-container")
	require.NotContains(t, out, "just text")
}

func TestSplitTabs(t *testing.T) {
	tabs := SplitTabs("ignored\n== One\nfirst\n\n== Two \nsecond\n")
	require.Equal(t, []Tab{{Name: "One", Content: "first"}, {Name: "Two", Content: "second"}}, tabs)
	require.Empty(t, SplitTabs("no headings"))
}

func TestPlainText(t *testing.T) {
	body := "# Title\n\nUse `foo` and [the guide](./guide.md) with **care**.\n\n```js\nconst x = 1;\n```\n~~old~~\n"
	require.Equal(t, "Title Use  and the guide with care. old", PlainText([]byte(body)))
}
