package markup

import (
	"strings"
	"testing"
)

const sampleRST = `Install
=======

Use pip to install the package::

    pip install qdrant-client

Usage
-----

.. code-block:: python

    from qdrant_client import QdrantClient
    client = QdrantClient()

See the ` + "`docs <https://example.com/rst>`_" + ` for details.

.. image:: diagram.png
    :width: 200
`

func TestParseRST(t *testing.T) {
	root, err := Parse([]byte(sampleRST), FormatRST, "install.rst")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var headings, paras, fenced, indented []*Node
	for _, c := range root.Children {
		switch c.Kind {
		case KindHeading:
			headings = append(headings, c)
		case KindParagraph:
			paras = append(paras, c)
		case KindFencedCode:
			fenced = append(fenced, c)
		case KindIndentedCode:
			indented = append(indented, c)
		}
	}

	if len(headings) != 2 || headings[0].Text != "Install" || headings[1].Text != "Usage" {
		t.Fatalf("headings: %+v", headings)
	}
	if len(indented) != 1 || indented[0].Text != "pip install qdrant-client\n" {
		t.Fatalf("literal block: %+v", indented)
	}
	if len(fenced) != 1 {
		t.Fatalf("directive blocks: %+v", fenced)
	}
	if fenced[0].Info != "python" {
		t.Errorf("directive language: got %q", fenced[0].Info)
	}
	if !strings.Contains(fenced[0].Text, "client = QdrantClient()") {
		t.Errorf("directive content: got %q", fenced[0].Text)
	}
	if len(paras) == 0 || !strings.HasSuffix(paras[0].Text, "install the package:") {
		t.Errorf("literal intro paragraph: %+v", paras)
	}
}

func TestParseRST_InlineLinks(t *testing.T) {
	root, _ := Parse([]byte(sampleRST), FormatRST, "install.rst")
	links := Links(root)
	if len(links) != 1 || links[0] != "https://example.com/rst" {
		t.Fatalf("links: %v", links)
	}
}

func TestParseRST_DirectiveWithOptions(t *testing.T) {
	src := `.. code-block:: go
    :linenos:

    fmt.Println("hi")
`
	root, _ := Parse([]byte(src), FormatRST, "opts.rst")
	if len(root.Children) != 1 || root.Children[0].Kind != KindFencedCode {
		t.Fatalf("blocks: %+v", root.Children)
	}
	if root.Children[0].Text != "fmt.Println(\"hi\")\n" {
		t.Errorf("content: got %q", root.Children[0].Text)
	}
	if root.Children[0].Info != "go" {
		t.Errorf("language: got %q", root.Children[0].Info)
	}
}

func TestParseRST_OverlinedTitle(t *testing.T) {
	src := `#########
Reference
#########

Body text.
`
	root, _ := Parse([]byte(src), FormatRST, "ref.rst")
	if len(root.Children) != 2 {
		t.Fatalf("blocks: %+v", root.Children)
	}
	if root.Children[0].Kind != KindHeading || root.Children[0].Text != "Reference" {
		t.Fatalf("heading: %+v", root.Children[0])
	}
}

func TestParseRST_StandaloneLiteral(t *testing.T) {
	src := `::

    raw block
`
	root, _ := Parse([]byte(src), FormatRST, "lit.rst")
	if len(root.Children) != 1 || root.Children[0].Kind != KindIndentedCode {
		t.Fatalf("blocks: %+v", root.Children)
	}
	if root.Children[0].Text != "raw block\n" {
		t.Errorf("content: got %q", root.Children[0].Text)
	}
}
