package markup

import (
	"errors"
	"strings"
	"testing"
)

const sampleNotebook = `{
  "nbformat": 4,
  "nbformat_minor": 5,
  "metadata": {
    "kernelspec": {"language": "python"},
    "language_info": {"name": "python"}
  },
  "cells": [
    {
      "cell_type": "markdown",
      "source": ["# Tour\n", "\n", "Connect to the server."]
    },
    {
      "cell_type": "code",
      "source": ["client = QdrantClient()\n", "client.get_collections()"],
      "outputs": [{"output_type": "execute_result", "data": {"text/plain": ["CollectionsResponse(...)"]}}]
    },
    {
      "cell_type": "raw",
      "source": "should be dropped"
    }
  ]
}`

func TestParseNotebook(t *testing.T) {
	root, err := Parse([]byte(sampleNotebook), FormatNotebook, "tour.ipynb")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var heading, para, code *Node
	for _, c := range root.Children {
		switch c.Kind {
		case KindHeading:
			heading = c
		case KindParagraph:
			para = c
		case KindFencedCode:
			code = c
		}
	}
	if heading == nil || heading.Text != "Tour" {
		t.Fatalf("heading: %+v", heading)
	}
	if para == nil || para.Text != "Connect to the server." {
		t.Fatalf("paragraph: %+v", para)
	}
	if code == nil {
		t.Fatal("missing code block")
	}
	if code.Info != "python" {
		t.Errorf("code language: got %q", code.Info)
	}
	if !strings.Contains(code.Text, "client.get_collections()") {
		t.Errorf("code content: got %q", code.Text)
	}
}

func TestParseNotebook_OutputsDropped(t *testing.T) {
	root, err := Parse([]byte(sampleNotebook), FormatNotebook, "tour.ipynb")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, c := range root.Children {
		if strings.Contains(c.Text, "CollectionsResponse") {
			t.Fatal("cell output leaked into the tree")
		}
	}
}

func TestParseNotebook_SourceAsString(t *testing.T) {
	nb := `{"nbformat": 4, "cells": [{"cell_type": "code", "source": "x = 1"}]}`
	root, err := Parse([]byte(nb), FormatNotebook, "s.ipynb")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Kind != KindFencedCode {
		t.Fatalf("blocks: %+v", root.Children)
	}
	if root.Children[0].Text != "x = 1\n" {
		t.Errorf("code: got %q", root.Children[0].Text)
	}
}

func TestParseNotebook_BackticksInCell(t *testing.T) {
	nb := `{"nbformat": 4, "cells": [{"cell_type": "code", "source": "s = \"` + "```" + `\""}]}`
	root, err := Parse([]byte(nb), FormatNotebook, "b.ipynb")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Kind != KindFencedCode {
		t.Fatalf("fence was broken by backticks in the cell: %+v", root.Children)
	}
}

func TestParseNotebook_Malformed(t *testing.T) {
	_, err := Parse([]byte("{not json"), FormatNotebook, "bad.ipynb")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Origin != "bad.ipynb" {
		t.Errorf("origin: got %q", perr.Origin)
	}
}
