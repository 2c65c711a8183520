package markup

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown converts a CommonMark document into the common tree.
// goldmark is error-tolerant, so markdown parsing itself never fails.
func parseMarkdown(src []byte) *Node {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))
	root := &Node{Kind: KindDocument}
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		root.Children = append(root.Children, convertBlock(c, src))
	}
	return root
}

func convertBlock(n ast.Node, src []byte) *Node {
	switch b := n.(type) {
	case *ast.Heading:
		node := &Node{Kind: KindHeading, Level: b.Level}
		node.Text, node.Children = inlineContent(b, src)
		return node
	case *ast.Paragraph, *ast.TextBlock:
		node := &Node{Kind: KindParagraph}
		node.Text, node.Children = inlineContent(n, src)
		return node
	case *ast.FencedCodeBlock:
		info := ""
		if b.Info != nil {
			info = string(b.Info.Segment.Value(src))
		}
		return &Node{Kind: KindFencedCode, Info: info, Text: blockLines(b, src)}
	case *ast.CodeBlock:
		return &Node{Kind: KindIndentedCode, Text: blockLines(b, src)}
	default:
		// Lists, blockquotes, tables: kept as opaque blocks so links
		// nested in them still reach the crawler.
		node := &Node{Kind: KindOther}
		node.Text, node.Children = inlineContent(n, src)
		return node
	}
}

// inlineContent flattens the inline content of a block into plain text and
// collects link nodes found anywhere below it.
func inlineContent(n ast.Node, src []byte) (string, []*Node) {
	var sb strings.Builder
	var links []*Node
	var walk func(ast.Node)
	walk = func(c ast.Node) {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.Link:
			links = append(links, &Node{Kind: KindLink, Href: string(t.Destination)})
		case *ast.AutoLink:
			links = append(links, &Node{Kind: KindLink, Href: string(t.URL(src))})
		}
		for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
			walk(gc)
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c)
	}
	return sb.String(), links
}

// blockLines joins the raw source lines of a code block.
func blockLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
