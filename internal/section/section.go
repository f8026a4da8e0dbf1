// Package section inserts review entries under a heading of a Markdown
// document.
//
// Two strategies are available. Substring treats the heading as plain text
// and anchors on its first occurrence anywhere in the document; it is the
// compatible default. Lines only anchors on a real Markdown heading line
// whose text equals the configured heading. Neither detects a heading that
// occurs more than once: the first occurrence always wins.
package section

import (
	"fmt"
	"strings"
)

// Strategy names accepted by New.
const (
	StrategySubstring = "substring"
	StrategyLines     = "lines"
)

// Merger inserts entry directly below heading in doc and returns the new
// document. When heading is missing it is appended, together with entry, at
// the end of doc. Repeated calls stack entries newest-first.
type Merger interface {
	Merge(doc, heading, entry string) string
}

// New returns the Merger for strategy. An empty strategy selects Substring.
func New(strategy string) (Merger, error) {
	switch strategy {
	case "", StrategySubstring:
		return Substring{}, nil
	case StrategyLines:
		return Lines{}, nil
	default:
		return nil, fmt.Errorf("section: unknown merge strategy %q", strategy)
	}
}

// Substring anchors on the first occurrence of heading as a substring.
type Substring struct{}

// Merge implements Merger.
func (Substring) Merge(doc, heading, entry string) string {
	if heading != "" && strings.Contains(doc, heading) {
		return strings.Replace(doc, heading, heading+"\n"+entry, 1)
	}
	return appendSection(doc, heading, entry)
}

// appendSection adds heading and entry at the end of doc, separated from
// existing content by a blank line.
func appendSection(doc, heading, entry string) string {
	block := heading + "\n" + entry
	if doc == "" {
		return block
	}
	if !strings.HasSuffix(doc, "\n") {
		doc += "\n"
	}
	return doc + "\n" + block + "\n"
}
