package section

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Lines anchors on the first ATX heading line whose trimmed text equals the
// trimmed heading. Setext headings and headings inside code blocks, block
// quotes, or list items never match.
type Lines struct{}

// Merge implements Merger.
func (Lines) Merge(doc, heading, entry string) string {
	end, ok := headingLineEnd(doc, heading)
	if !ok {
		return appendSection(doc, heading, entry)
	}
	return doc[:end] + "\n" + entry + doc[end:]
}

// headingLineEnd returns the byte offset of the end of the matching heading
// line (the position of its newline, or len(doc)).
func headingLineEnd(doc, heading string) (int, bool) {
	want := strings.TrimSpace(heading)
	if want == "" {
		return 0, false
	}
	src := []byte(doc)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*ast.Heading); !ok || n.Lines().Len() == 0 {
			continue
		}
		start, end := lineBounds(doc, n.Lines().At(0).Start)
		line := strings.TrimSpace(doc[start:end])
		if strings.HasPrefix(line, "#") && line == want {
			return end, true
		}
	}
	return 0, false
}

// lineBounds returns the [start, end) offsets of the line containing offset,
// excluding the trailing newline.
func lineBounds(doc string, offset int) (int, int) {
	start := strings.LastIndexByte(doc[:offset], '\n') + 1
	end := strings.IndexByte(doc[offset:], '\n')
	if end < 0 {
		return start, len(doc)
	}
	return start, end + offset
}
