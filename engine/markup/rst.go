package markup

import (
	"regexp"
	"strings"
)

// reStructuredText has no maintained Go parser, so this is a minimal
// converter targeting only the node set the extractor reads: section
// titles, paragraphs, literal blocks and code-block directives, plus
// inline link targets for the crawler.

var (
	rstCodeDirective = regexp.MustCompile(`^\.\.\s+(?:code-block|code|sourcecode)::\s*(\S*)\s*$`)
	// `text <url>`_ and anonymous `text <url>`__
	rstInlineLink = regexp.MustCompile("`[^`<>]*<([^>]+)>`__?")
	// standalone hyperlink target: .. _name: url
	rstLinkTarget = regexp.MustCompile(`^\.\.\s+_[^:]+:\s+(\S+)\s*$`)
)

// adornment characters recognized for section titles.
const rstAdornChars = `=-~^"'` + "`" + `#*+.:_`

func parseRST(src []byte) *Node {
	lines := strings.Split(string(src), "\n")
	root := &Node{Kind: KindDocument}

	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], " \t")
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		// Code directive with optional language argument.
		if m := rstCodeDirective.FindStringSubmatch(strings.TrimSpace(line)); m != nil && !isIndented(line) {
			body, next := rstIndentedBlock(lines, i+1, true)
			if body != "" {
				root.Children = append(root.Children, &Node{Kind: KindFencedCode, Info: m[1], Text: body})
			}
			i = next
			continue
		}

		// Hyperlink target.
		if m := rstLinkTarget.FindStringSubmatch(line); m != nil {
			root.Children = append(root.Children, &Node{Kind: KindLink, Href: m[1]})
			i++
			continue
		}

		// Any other directive or comment: skip it and its indented body.
		if strings.HasPrefix(line, ".. ") || line == ".." {
			i++
			for i < len(lines) && (strings.TrimSpace(lines[i]) == "" || isIndented(lines[i])) {
				i++
			}
			continue
		}

		// Overlined section title: adornment / title / adornment.
		if isAdornment(line, 1) && i+2 < len(lines) &&
			strings.TrimSpace(lines[i+1]) != "" &&
			isAdornment(strings.TrimRight(lines[i+2], " \t"), len(strings.TrimSpace(lines[i+1]))) {
			root.Children = append(root.Children, &Node{Kind: KindHeading, Level: 1, Text: strings.TrimSpace(lines[i+1])})
			i += 3
			continue
		}

		// Underlined section title.
		if !isIndented(line) && i+1 < len(lines) &&
			isAdornment(strings.TrimRight(lines[i+1], " \t"), len(line)) {
			root.Children = append(root.Children, &Node{Kind: KindHeading, Level: 1, Text: strings.TrimSpace(line)})
			i += 2
			continue
		}

		// Paragraph: gather until a blank line.
		var para []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			para = append(para, strings.TrimRight(lines[i], " \t"))
			i++
		}
		text := strings.Join(para, "\n")

		node := &Node{Kind: KindParagraph}
		for _, m := range rstInlineLink.FindAllStringSubmatch(text, -1) {
			node.Children = append(node.Children, &Node{Kind: KindLink, Href: m[1]})
		}

		// Trailing "::" introduces a literal block of indented code.
		literal := false
		if strings.HasSuffix(text, "::") {
			literal = true
			text = strings.TrimSuffix(text, "::")
			if text != "" && !strings.HasSuffix(text, " ") && !strings.HasSuffix(text, "\n") {
				// Attached form "para::" renders as "para:".
				text += ":"
			}
			text = strings.TrimRight(text, " \n")
		}
		node.Text = text
		if strings.TrimSpace(text) != "" || len(node.Children) > 0 {
			root.Children = append(root.Children, node)
		}

		if literal {
			body, next := rstIndentedBlock(lines, i, false)
			if body != "" {
				root.Children = append(root.Children, &Node{Kind: KindIndentedCode, Text: body})
			}
			i = next
		}
	}
	return root
}

// rstIndentedBlock consumes the indented block starting at lines[start]
// (after any leading blank lines) and returns its dedented content plus the
// index of the first line after the block. When skipOptions is set, leading
// ":option:" field lines of a directive are dropped.
func rstIndentedBlock(lines []string, start int, skipOptions bool) (string, int) {
	i := start
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}

	var block []string
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" {
			block = append(block, "")
			i++
			continue
		}
		if !isIndented(lines[i]) {
			break
		}
		block = append(block, strings.TrimRight(lines[i], " \t"))
		i++
	}
	// Drop trailing blank lines.
	for len(block) > 0 && block[len(block)-1] == "" {
		block = block[:len(block)-1]
	}

	if skipOptions {
		for len(block) > 0 {
			t := strings.TrimSpace(block[0])
			if t == "" || (strings.HasPrefix(t, ":") && strings.Count(t, ":") >= 2) {
				block = block[1:]
				continue
			}
			break
		}
	}
	if len(block) == 0 {
		return "", i
	}
	return dedent(block), i
}

func dedent(block []string) string {
	indent := -1
	for _, l := range block {
		if l == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent < 0 {
		indent = 0
	}
	out := make([]string, len(block))
	for i, l := range block {
		if len(l) >= indent {
			out[i] = l[indent:]
		}
	}
	return strings.Join(out, "\n") + "\n"
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// isAdornment reports whether line is a run of one repeated adornment
// character at least min long.
func isAdornment(line string, min int) bool {
	if len(line) < 2 || len(line) < min {
		return false
	}
	c := line[0]
	if !strings.ContainsRune(rstAdornChars, rune(c)) {
		return false
	}
	for i := 1; i < len(line); i++ {
		if line[i] != c {
			return false
		}
	}
	return true
}
