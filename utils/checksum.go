package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	clauseEndRe  = regexp.MustCompile(`([.!?;])\s+`)
)

// Checksum returns a deterministic fingerprint of text. It is used for
// change detection and cache keys, not for security, so a fast
// non-cryptographic hash is enough.
func Checksum(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// NormalizeDescription cleans up AI-generated description text: collapses
// all runs of whitespace, breaks the text into one sentence or clause per
// line, and drops empty lines.
func NormalizeDescription(text string) string {
	collapsed := whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if collapsed == "" {
		return ""
	}

	broken := clauseEndRe.ReplaceAllString(collapsed, "$1\n")
	lines := strings.Split(broken, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
