package markup

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseHTML converts a rendered HTML page into the common tree. Headings,
// paragraphs and <pre> blocks become the matching block nodes; anchors
// outside those blocks are appended as bare link nodes so the crawler sees
// navigation links too.
func parseHTML(src []byte) (*Node, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	root := &Node{Kind: KindDocument}
	convertHTML(doc, root)
	return root, nil
}

func convertHTML(n *html.Node, root *Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Template, atom.Noscript:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			node := &Node{Kind: KindHeading, Level: int(n.Data[1] - '0')}
			node.Text, node.Children = htmlInline(n)
			root.Children = append(root.Children, node)
			return
		case atom.P:
			node := &Node{Kind: KindParagraph}
			node.Text, node.Children = htmlInline(n)
			root.Children = append(root.Children, node)
			return
		case atom.Pre:
			root.Children = append(root.Children, &Node{
				Kind: KindFencedCode,
				Info: codeLanguage(n),
				Text: htmlText(n),
			})
			return
		case atom.A:
			if href := attr(n, "href"); href != "" {
				root.Children = append(root.Children, &Node{Kind: KindLink, Href: href})
			}
			// Fall through to children: nested anchors are invalid
			// HTML but nested content is not.
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		convertHTML(c, root)
	}
}

// htmlInline flattens an element's text content and collects its anchors.
func htmlInline(n *html.Node) (string, []*Node) {
	var sb strings.Builder
	var links []*Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type == html.ElementNode && c.DataAtom == atom.A:
			if href := attr(c, "href"); href != "" {
				links = append(links, &Node{Kind: KindLink, Href: href})
			}
		case c.Type == html.ElementNode && c.DataAtom == atom.Br:
			sb.WriteByte('\n')
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return strings.TrimSpace(sb.String()), links
}

// htmlText returns the raw text content of a node, preserving whitespace.
func htmlText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return sb.String()
}

// codeLanguage extracts a language hint from class attributes of a <pre>
// or its nested <code>, following the common "language-x" / "highlight-x" /
// "lang-x" conventions.
func codeLanguage(pre *html.Node) string {
	if lang := classLanguage(attr(pre, "class")); lang != "" {
		return lang
	}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			if lang := classLanguage(attr(c, "class")); lang != "" {
				return lang
			}
		}
	}
	return ""
}

func classLanguage(class string) string {
	for _, token := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "highlight-", "lang-"} {
			if rest, ok := strings.CutPrefix(token, prefix); ok && rest != "" {
				return strings.ToLower(rest)
			}
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
