package ingestion

import (
	"strings"
	"testing"

	"github.com/bacmr/maktaba/internal/core"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":      0,
		"abc":   1,
		"abcd":  1,
		"abcde": 2,
	}
	for text, want := range cases {
		if got := estimateTokens(text); got != want {
			t.Fatalf("estimateTokens(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	segs := splitSentences("First sentence. Second one! Third?")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %v", len(segs), segs)
	}
	if segs[0] != "First sentence." {
		t.Fatalf("unexpected first segment: %q", segs[0])
	}
	if segs[2] != "Third?" {
		t.Fatalf("punctuation should stay with its sentence, got %q", segs[2])
	}
}

func TestSplitSentencesArabicQuestionMark(t *testing.T) {
	segs := splitSentences("ما هي القوة؟ القوة تغير الحركة.")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %v", len(segs), segs)
	}
}

func TestSplitSentencesNewline(t *testing.T) {
	// A newline followed by more whitespace ends a segment even without
	// terminal punctuation (headings, list items).
	segs := splitSentences("Chapter One\n  The force concept")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %v", len(segs), segs)
	}
	if segs[0] != "Chapter One" {
		t.Fatalf("unexpected first segment: %q", segs[0])
	}
}

func TestSplitSentencesNoTrailingCut(t *testing.T) {
	segs := splitSentences("ends with terminal. ")
	if len(segs) != 1 {
		t.Fatalf("trailing whitespace must not produce an empty segment, got %v", segs)
	}
}

func TestChunkPagesEmpty(t *testing.T) {
	if got := ChunkPages(nil, 100, 10); len(got) != 0 {
		t.Fatalf("expected no chunks for no pages, got %d", len(got))
	}
	if got := ChunkPages([]core.Page{{PageNumber: 1, Text: "   "}}, 100, 10); len(got) != 0 {
		t.Fatalf("expected no chunks for blank page, got %d", len(got))
	}
}

func TestChunkPagesSinglePage(t *testing.T) {
	pages := []core.Page{{PageNumber: 3, Text: "Short page. Nothing more."}}
	chunks := ChunkPages(pages, 100, 10)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.PageStart != 3 || c.PageEnd != 3 {
		t.Fatalf("expected span 3-3, got %d-%d", c.PageStart, c.PageEnd)
	}
	if c.TokenCount != estimateTokens(c.Text) {
		t.Fatalf("token count %d does not match estimate %d", c.TokenCount, estimateTokens(c.Text))
	}
}

func TestChunkPagesTwoPages(t *testing.T) {
	pages := []core.Page{
		{PageNumber: 1, Text: "Newton's first law. Objects in motion stay in motion."},
		{PageNumber: 2, Text: "The second law. F = ma relates force and mass."},
	}
	chunks := ChunkPages(pages, 10, 2)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.PageStart < 1 || c.PageEnd > 2 || c.PageStart > c.PageEnd {
			t.Fatalf("invalid span %d-%d", c.PageStart, c.PageEnd)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Fatal("empty chunk text")
		}
	}

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, "F = ma") {
			found = true
			if c.PageEnd != 2 {
				t.Fatalf("F = ma chunk should end on page 2, got %d-%d", c.PageStart, c.PageEnd)
			}
		}
	}
	if !found {
		t.Fatal("no chunk contains 'F = ma'; content was lost")
	}
}

func TestChunkPagesOverlap(t *testing.T) {
	pages := []core.Page{{PageNumber: 1, Text: strings.Repeat("One short sentence here. ", 20)}}
	chunks := ChunkPages(pages, 20, 4)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each chunk after the first starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		tail := tailRunes(chunks[i-1].Text, 4*avgCharsPerToken)
		if !strings.HasPrefix(chunks[i].Text, strings.TrimSpace(tail)) {
			t.Fatalf("chunk %d does not start with predecessor's tail %q: %q", i, tail, chunks[i].Text)
		}
	}
}

func TestChunkPagesOversizeSegment(t *testing.T) {
	// One run with no sentence boundaries, far over the budget: it must be
	// kept whole rather than truncated.
	long := strings.Repeat("word ", 200)
	long = strings.TrimSpace(long)
	chunks := ChunkPages([]core.Page{{PageNumber: 1, Text: long}}, 10, 2)
	if len(chunks) != 1 {
		t.Fatalf("expected one oversize chunk, got %d", len(chunks))
	}
	if chunks[0].Text != long {
		t.Fatal("oversize segment was altered")
	}
	if chunks[0].TokenCount <= 10 {
		t.Fatalf("expected token count above the budget, got %d", chunks[0].TokenCount)
	}
}

func TestChunkPagesContentPreserved(t *testing.T) {
	pages := []core.Page{
		{PageNumber: 1, Text: "Alpha beta gamma. Delta epsilon zeta. Eta theta iota."},
		{PageNumber: 2, Text: "Kappa lambda mu. Nu xi omicron."},
	}
	chunks := ChunkPages(pages, 5, 0)

	joined := ""
	for _, c := range chunks {
		joined += c.Text + " "
	}
	for _, word := range []string{"Alpha", "zeta", "iota", "Kappa", "omicron"} {
		if !strings.Contains(joined, word) {
			t.Fatalf("word %q missing from chunk output", word)
		}
	}
}
