// Package markup normalizes every supported documentation format into one
// common block tree, so the snippet extractor never needs format-specific
// logic. Markdown is the reference dialect; reStructuredText, notebooks and
// rendered HTML are all converted into the same node set.
package markup

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Kind identifies a node in the common tree.
type Kind int

const (
	KindDocument Kind = iota
	KindHeading
	KindParagraph
	KindFencedCode
	KindIndentedCode
	KindLink
	KindOther
)

// Node is one block or inline element of the common tree. Headings and
// paragraphs carry their text plus any links found inside them as children;
// code nodes carry the raw block content, never re-indented or reformatted.
type Node struct {
	Kind     Kind
	Level    int    // heading level, 1-6
	Text     string // heading/paragraph text or raw code content
	Info     string // fence info string, e.g. "python"
	Href     string // link destination
	Children []*Node
}

// Links collects every link destination in the tree, transitively and in
// document order. The crawler uses this; the extractor only reads the
// root's direct children.
func Links(root *Node) []string {
	var out []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == KindLink && n.Href != "" {
			out = append(out, n.Href)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Format is the closed set of supported input formats.
type Format int

const (
	FormatMarkdown Format = iota
	FormatRST
	FormatNotebook
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatRST:
		return "rst"
	case FormatNotebook:
		return "notebook"
	case FormatHTML:
		return "html"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ErrUnsupportedFormat is returned when a file extension maps to no parser.
var ErrUnsupportedFormat = errors.New("markup: unsupported format")

// ParseError reports a document that could not be parsed, with the
// originating file path or URL.
type ParseError struct {
	Origin string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("markup: parse %s: %v", e.Origin, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extensions lists the file extensions the parsers accept.
var Extensions = []string{".md", ".markdown", ".rst", ".ipynb", ".html", ".htm"}

// FormatForPath selects a parser by file extension.
func FormatForPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".rst":
		return FormatRST, nil
	case ".ipynb":
		return FormatNotebook, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path.Ext(p))
	}
}

// Parse converts a raw document into the common tree. origin is the file
// path or URL, used only in error reporting.
func Parse(src []byte, format Format, origin string) (*Node, error) {
	switch format {
	case FormatMarkdown:
		return parseMarkdown(src), nil
	case FormatRST:
		return parseRST(src), nil
	case FormatNotebook:
		md, err := notebookToMarkdown(src)
		if err != nil {
			return nil, &ParseError{Origin: origin, Err: err}
		}
		return parseMarkdown(md), nil
	case FormatHTML:
		root, err := parseHTML(src)
		if err != nil {
			return nil, &ParseError{Origin: origin, Err: err}
		}
		return root, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseFile is Parse with the format chosen from the path's extension.
func ParseFile(src []byte, p string) (*Node, error) {
	format, err := FormatForPath(p)
	if err != nil {
		return nil, err
	}
	return Parse(src, format, p)
}
