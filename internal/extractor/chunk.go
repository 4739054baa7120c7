package extractor

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts text to at most maxChars bytes, backing off to the previous
// rune boundary so the cut never splits a multi-byte character. Truncation is
// deterministic and lossy: the same input always produces the same prefix.
// Callers should log when truncation happens so the information-loss boundary
// is visible to operators.
func Truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || len(text) <= maxChars {
		return text, false
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}

// Chunk splits text into chunks along paragraph boundaries (blank-line
// delimited), greedily packing paragraphs until the character budget is
// reached. A paragraph is never split across chunks; a single paragraph
// larger than the budget becomes its own chunk. Joining the chunks back with
// "\n\n" reproduces the original paragraph sequence.
func Chunk(text string, budget int) []string {
	if text == "" {
		return nil
	}
	if budget <= 0 {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current []string
	currentLen := 0

	for _, para := range paragraphs {
		if currentLen+len(para) > budget && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = []string{para}
			currentLen = len(para)
			continue
		}
		current = append(current, para)
		currentLen += len(para)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}
