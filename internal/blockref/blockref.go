// Package blockref finds and mints block anchors: the short "^id" tokens
// appended to a line so it can be deep-linked as [[Note#^id]].
package blockref

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const (
	// AnchorLen is the length of a minted anchor id.
	AnchorLen = 7
	alphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// FindAnchor returns the first id in known (in the given order) that line
// ends with, compared case-insensitively. It returns "" when none match.
func FindAnchor(line string, known []string) string {
	for _, id := range known {
		if id == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(id) + `$`)
		if err != nil {
			continue
		}
		if re.MatchString(line) {
			return id
		}
	}
	return ""
}

// Attach returns line with anchor appended as " ^anchor".
func Attach(line, anchor string) string {
	return line + " ^" + anchor
}

// Minter generates anchor ids. It is not safe for concurrent use unless
// its source is.
type Minter struct {
	rnd *rand.Rand
}

// NewMinter returns a Minter drawing from src. A nil src uses a randomly
// seeded PCG source.
func NewMinter(src rand.Source) *Minter {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Minter{rnd: rand.New(src)}
}

// Mint returns a new AnchorLen-character id over [a-z0-9]. Uniqueness
// within a note is not checked.
func (m *Minter) Mint() string {
	var b strings.Builder
	b.Grow(AnchorLen)
	for range AnchorLen {
		b.WriteByte(alphabet[m.rnd.IntN(len(alphabet))])
	}
	return b.String()
}
