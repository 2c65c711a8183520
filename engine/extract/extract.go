// Package extract walks the common markup tree and emits partial snippet
// records: raw code plus the heading/paragraph context that precedes it.
package extract

import (
	"strings"

	"github.com/docsnips/docsnips/engine/markup"
)

// PartialSnippet is an extracted code block before it is attributed to a
// library and version. Consumed immediately by a source driver.
type PartialSnippet struct {
	Context          string
	Code             string
	DeclaredLanguage string
	Origin           string
}

// Extract emits one PartialSnippet per code block among the root's direct
// children, in document order. Only direct children are scanned: attributing
// context across nested structure (list items, blockquotes) over-reaches.
//
// Context tracking is a two-cell state machine: a heading starts a fresh
// context window and clears the remembered paragraph; a paragraph never
// clears the heading, because examples commonly follow
// "heading, explanatory paragraph, code".
func Extract(root *markup.Node, origin string) []PartialSnippet {
	var out []PartialSnippet
	var lastHeading, lastParagraph string

	for _, n := range root.Children {
		switch n.Kind {
		case markup.KindHeading:
			lastHeading = n.Text
			lastParagraph = ""
		case markup.KindParagraph:
			if strings.TrimSpace(n.Text) != "" {
				lastParagraph = n.Text
			}
		case markup.KindFencedCode:
			out = append(out, PartialSnippet{
				Context:          joinContext(lastHeading, lastParagraph),
				Code:             n.Text,
				DeclaredLanguage: languageFromInfo(n.Info),
				Origin:           origin,
			})
		case markup.KindIndentedCode:
			out = append(out, PartialSnippet{
				Context: joinContext(lastHeading, lastParagraph),
				Code:    n.Text,
				Origin:  origin,
			})
		}
	}
	return out
}

// joinContext combines the remembered heading and paragraph; either alone
// when only one is set.
func joinContext(heading, paragraph string) string {
	switch {
	case heading != "" && paragraph != "":
		return heading + "\n\n" + paragraph
	case paragraph != "":
		return paragraph
	default:
		return heading
	}
}

// languageFromInfo reads the language tag from a fence info string: the
// first whitespace-delimited word, lower-cased. "python title=..." -> "python".
func languageFromInfo(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
