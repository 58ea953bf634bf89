package ingestion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bacmr/maktaba/internal/core"
)

// Chunk is one emitted slice of document text with its page span.
type Chunk struct {
	Text       string
	PageStart  int
	PageEnd    int
	TokenCount int
}

// avgCharsPerToken is a cheap proxy for a real tokenizer. Chunk boundaries from
// this estimate will not line up exactly with the embedding model's tokenizer;
// that is an accepted tradeoff, kept for parity with existing chunk boundaries.
const avgCharsPerToken = 4

func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + avgCharsPerToken - 1) / avgCharsPerToken
}

// Sentence-terminal runes. Latin terminals plus the Arabic question mark and
// full stop for the Arabic textbook corpus, and the danda carried over from the
// splitting heuristic this chunker preserves.
func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '؟', '۔', '।':
		return true
	}
	return false
}

// splitSentences cuts text into sentence-like segments at whitespace runs that
// follow a terminal rune or a newline. Punctuation stays with its sentence; a
// segment is never split internally no matter how long it is.
func splitSentences(text string) []string {
	runes := []rune(text)
	var segments []string
	start := 0
	i := 0
	for i < len(runes) {
		if !unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		// Found a whitespace run beginning at i.
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		cut := -1
		if i > 0 && isTerminal(runes[i-1]) {
			cut = i
		} else {
			// A newline inside the run also ends a segment, provided some
			// whitespace follows it.
			for k := i; k < j-1; k++ {
				if runes[k] == '\n' {
					cut = k + 1
					break
				}
			}
		}
		if cut >= 0 && j < len(runes) {
			seg := strings.TrimSpace(string(runes[start:cut]))
			if seg != "" {
				segments = append(segments, seg)
			}
			start = j
		}
		i = j
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		segments = append(segments, tail)
	}
	return segments
}

// ChunkPages segments per-page text into overlapping token-bounded chunks,
// tracking the page span each chunk covers.
//
// Segments accumulate into a buffer; when adding the next segment would push the
// estimate past maxTokens, the buffer is emitted and the next buffer is seeded
// with the trailing overlapTokens worth of characters for retrieval continuity
// across the boundary. A single segment longer than maxTokens still becomes its
// own chunk; content is never truncated.
func ChunkPages(pages []core.Page, maxTokens, overlapTokens int) []Chunk {
	var chunks []Chunk

	currentText := ""
	currentPageStart := 1
	if len(pages) > 0 {
		currentPageStart = pages[0].PageNumber
	}
	currentPageEnd := currentPageStart

	for _, page := range pages {
		for _, sentence := range splitSentences(page.Text) {
			candidate := sentence
			if currentText != "" {
				candidate = currentText + " " + sentence
			}

			if estimateTokens(candidate) > maxTokens && len(currentText) > 0 {
				chunks = append(chunks, Chunk{
					Text:       strings.TrimSpace(currentText),
					PageStart:  currentPageStart,
					PageEnd:    currentPageEnd,
					TokenCount: estimateTokens(currentText),
				})

				overlap := tailRunes(currentText, overlapTokens*avgCharsPerToken)
				currentText = overlap + " " + sentence
				currentPageStart = page.PageNumber
				currentPageEnd = page.PageNumber
			} else {
				currentText = candidate
				currentPageEnd = page.PageNumber
			}
		}
	}

	if strings.TrimSpace(currentText) != "" {
		chunks = append(chunks, Chunk{
			Text:       strings.TrimSpace(currentText),
			PageStart:  currentPageStart,
			PageEnd:    currentPageEnd,
			TokenCount: estimateTokens(currentText),
		})
	}

	return chunks
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
