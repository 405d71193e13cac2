// Package chunker segments document content into retrievable chunks.
package chunker

import "strings"

// Paragraphs splits content into paragraph-level chunks: one chunk per
// newline-delimited line, whitespace-trimmed, empty lines dropped.
//
// The rule is deliberately fixed and deterministic - re-ingesting identical
// content always produces the same chunk sequence.
func Paragraphs(content string) []string {
	lines := strings.Split(content, "\n")
	chunks := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}
