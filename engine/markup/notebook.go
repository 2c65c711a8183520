package markup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// notebook models the subset of the nbformat v4 schema we read. Cell
// outputs are intentionally absent: execution results are stale or
// irrelevant by the time a corpus is built and must never leak into it.
type notebook struct {
	Cells    []notebookCell `json:"cells"`
	Metadata struct {
		Kernelspec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
	NBFormat int `json:"nbformat"`
}

type notebookCell struct {
	CellType string    `json:"cell_type"`
	Source   multiline `json:"source"`
}

// multiline accepts the nbformat convention of either a single string or a
// list of line strings.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiline(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*m = multiline(strings.Join(lines, ""))
	return nil
}

// notebookToMarkdown renders a notebook as markdown: markdown cells pass
// through verbatim, code cells are re-fenced with the kernel language, and
// everything else (raw cells, outputs) is dropped.
func notebookToMarkdown(src []byte) ([]byte, error) {
	var nb notebook
	if err := json.Unmarshal(src, &nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return nil, fmt.Errorf("unsupported nbformat %d", nb.NBFormat)
	}

	lang := nb.Metadata.LanguageInfo.Name
	if lang == "" {
		lang = nb.Metadata.Kernelspec.Language
	}

	var sb strings.Builder
	for _, cell := range nb.Cells {
		body := string(cell.Source)
		switch cell.CellType {
		case "markdown":
			sb.WriteString(body)
			sb.WriteString("\n\n")
		case "code":
			fence := fenceFor(body)
			sb.WriteString(fence)
			sb.WriteString(lang)
			sb.WriteByte('\n')
			sb.WriteString(body)
			if !strings.HasSuffix(body, "\n") {
				sb.WriteByte('\n')
			}
			sb.WriteString(fence)
			sb.WriteString("\n\n")
		}
	}
	return []byte(sb.String()), nil
}

// fenceFor picks a fence longer than any backtick run in the cell body.
func fenceFor(body string) string {
	longest := 0
	run := 0
	for _, r := range body {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := longest + 1
	if n < 3 {
		n = 3
	}
	return strings.Repeat("`", n)
}
