package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// AdmonitionKind describes the fixed icon and label of an admonition type.
type AdmonitionKind struct {
	Icon  string
	Label string
}

// AdmonitionKinds lists the recognised admonition types.
var AdmonitionKinds = map[string]AdmonitionKind{
	"note":    {Icon: "ℹ️", Label: "Note"},
	"tip":     {Icon: "💡", Label: "Tip"},
	"info":    {Icon: "ℹ️", Label: "Info"},
	"warning": {Icon: "⚠️", Label: "Warning"},
	"danger":  {Icon: "🚫", Label: "Danger"},
	"caution": {Icon: "⚠️", Label: "Caution"},
}

// KindAdmonition is the node kind of an admonition container.
var KindAdmonition = gmast.NewNodeKind("Admonition")

// KindTabs is the node kind of a tab group container.
var KindTabs = gmast.NewNodeKind("Tabs")

// Admonition is a :::kind [title] container. Its lines hold the raw body.
type Admonition struct {
	gmast.BaseBlock
	AdmonitionType string
	Title          string
}

func (n *Admonition) Kind() gmast.NodeKind { return KindAdmonition }
func (n *Admonition) IsRaw() bool          { return true }
func (n *Admonition) Dump(source []byte, level int) {
	gmast.DumpHelper(n, source, level, map[string]string{"Type": n.AdmonitionType, "Title": n.Title}, nil)
}

// Tabs is a :::tabs container. Its lines hold the raw body.
type Tabs struct {
	gmast.BaseBlock
}

func (n *Tabs) Kind() gmast.NodeKind { return KindTabs }
func (n *Tabs) IsRaw() bool          { return true }
func (n *Tabs) Dump(source []byte, level int) {
	gmast.DumpHelper(n, source, level, nil, nil)
}

var containerFence = []byte(":::")

func isContainerClose(line []byte) bool {
	return bytes.Equal(bytes.TrimSpace(line), containerFence)
}

// containerParser opens :::note/:::tabs blocks and collects raw lines until
// the first bare ::: line. Containers do not nest.
type containerParser struct{}

func (p *containerParser) Trigger() []byte {
	return []byte{':'}
}

func (p *containerParser) Open(parent gmast.Node, reader text.Reader, pc parser.Context) (gmast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], containerFence) {
		return nil, parser.NoChildren
	}
	head := strings.TrimRight(string(line[pos+len(containerFence):]), "\r\n")

	var node gmast.Node
	if strings.TrimSpace(head) == "tabs" {
		node = &Tabs{}
	} else {
		name, title, _ := strings.Cut(head, " ")
		if _, ok := AdmonitionKinds[name]; !ok {
			return nil, parser.NoChildren
		}
		node = &Admonition{AdmonitionType: name, Title: strings.TrimSpace(title)}
	}

	if !hasClosingLine(reader.Source()[segment.Stop:]) {
		return nil, parser.NoChildren
	}
	return node, parser.NoChildren
}

func hasClosingLine(rest []byte) bool {
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i+1], rest[i+1:]
		} else {
			rest = nil
		}
		if isContainerClose(line) {
			return true
		}
	}
	return false
}

func (p *containerParser) Continue(node gmast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	newline := 0
	if line[len(line)-1] == '\n' {
		newline = 1
	}
	if isContainerClose(line) {
		reader.Advance(segment.Len() - newline + segment.Padding)
		return parser.Close
	}
	node.Lines().Append(segment)
	reader.Advance(segment.Len() - newline + segment.Padding)
	return parser.Continue | parser.NoChildren
}

func (p *containerParser) Close(node gmast.Node, reader text.Reader, pc parser.Context) {}

func (p *containerParser) CanInterruptParagraph() bool {
	return true
}

func (p *containerParser) CanAcceptIndentedLine() bool {
	return false
}

type containerRenderer struct {
	owner *Renderer
}

func (r *containerRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAdmonition, r.renderAdmonition)
	reg.Register(KindTabs, r.renderTabs)
}

func rawBody(node gmast.Node, source []byte) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

func (r *containerRenderer) renderAdmonition(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkSkipChildren, nil
	}
	n := node.(*Admonition)
	kind := AdmonitionKinds[n.AdmonitionType]
	title := n.Title
	if title == "" {
		title = kind.Label
	}

	content, err := r.owner.Render([]byte(strings.TrimSpace(rawBody(n, source))))
	if err != nil {
		return gmast.WalkStop, err
	}

	fmt.Fprintf(w, `<div class="admonition admonition-%s">
  <div class="admonition-heading">
    <span class="admonition-icon">%s</span>
    <span class="admonition-title">%s</span>
  </div>
  <div class="admonition-content">
%s
  </div>
</div>
`, n.AdmonitionType, kind.Icon, title, content)
	return gmast.WalkSkipChildren, nil
}

var tabHeading = regexp.MustCompile(`(?m)^== (.+)$`)

// Tab is one named panel of a tab group.
type Tab struct {
	Name    string
	Content string
}

// SplitTabs splits a tab group body on `== Name` lines. Text before the first
// heading is discarded.
func SplitTabs(body string) []Tab {
	matches := tabHeading.FindAllStringSubmatchIndex(body, -1)
	tabs := make([]Tab, 0, len(matches))
	for i, m := range matches {
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		tabs = append(tabs, Tab{
			Name:    strings.TrimSpace(body[m[2]:m[3]]),
			Content: strings.TrimSpace(body[m[1]:end]),
		})
	}
	return tabs
}

// tabGroupID derives a stable id from the group's position and body so that
// repeated builds produce identical output.
func tabGroupID(offset int, body string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%s", offset, body)))
	return "tabs-" + strings.ReplaceAll(id.String(), "-", "")[:9]
}

func (r *containerRenderer) renderTabs(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkSkipChildren, nil
	}
	body := rawBody(node, source)
	tabs := SplitTabs(body)
	if len(tabs) == 0 {
		return gmast.WalkSkipChildren, nil
	}

	offset := 0
	if lines := node.Lines(); lines.Len() > 0 {
		offset = lines.At(0).Start
	}
	id := tabGroupID(offset, body)

	buttons := make([]string, 0, len(tabs))
	panels := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		active := ""
		if i == 0 {
			active = " active"
		}
		content, err := r.owner.Render([]byte(tab.Content))
		if err != nil {
			return gmast.WalkStop, err
		}
		buttons = append(buttons, fmt.Sprintf(`<button class="tab-button%s" data-tab="%s-%d">%s</button>`, active, id, i, tab.Name))
		panels = append(panels, fmt.Sprintf(`<div class="tab-panel%s" data-tab="%s-%d">%s</div>`, active, id, i, content))
	}

	fmt.Fprintf(w, `<div class="tabs-container" data-tabs-id="%s">
  <div class="tabs-header">
    %s
  </div>
  <div class="tabs-content">
    %s
  </div>
</div>
`, id, strings.Join(buttons, "\n    "), strings.Join(panels, "\n    "))
	return gmast.WalkSkipChildren, nil
}
