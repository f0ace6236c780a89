package page

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Heading is one table-of-contents entry.
type Heading struct {
	Level int
	Text  string
	ID    string
}

type openHeading struct {
	tag   string
	level int
	start string
	inner strings.Builder
	text  strings.Builder
}

// TableOfContents finds the non-empty <h2> and <h3> elements of src in
// document order, numbers them heading-0, heading-1, ... and returns the
// entries together with src rewritten so that each heading carries its id.
// Everything else is copied byte for byte.
func TableOfContents(src string) ([]Heading, string) {
	z := html.NewTokenizer(strings.NewReader(src))
	var out strings.Builder
	var headings []Heading
	var open *openHeading

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if open != nil {
				out.WriteString(open.start)
				out.WriteString(open.inner.String())
			}
			break
		}
		raw := string(z.Raw())

		if open != nil {
			if tt == html.EndTagToken {
				if name, _ := z.TagName(); string(name) == open.tag {
					inner := open.inner.String()
					if strings.TrimSpace(inner) == "" {
						out.WriteString(open.start + inner + raw)
					} else {
						id := fmt.Sprintf("heading-%d", len(headings))
						out.WriteString(withID(open.start, id) + inner + raw)
						headings = append(headings, Heading{
							Level: open.level,
							Text:  strings.TrimSpace(open.text.String()),
							ID:    id,
						})
					}
					open = nil
					continue
				}
			}
			open.inner.WriteString(raw)
			if tt == html.TextToken {
				open.text.WriteString(raw)
			}
			continue
		}

		if tt == html.StartTagToken {
			name, _ := z.TagName()
			switch string(name) {
			case "h2":
				open = &openHeading{tag: "h2", level: 2, start: raw}
				continue
			case "h3":
				open = &openHeading{tag: "h3", level: 3, start: raw}
				continue
			}
		}
		out.WriteString(raw)
	}
	return headings, out.String()
}

func withID(startTag, id string) string {
	return strings.TrimSuffix(startTag, ">") + fmt.Sprintf(` id="%s">`, id)
}
