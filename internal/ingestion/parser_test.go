package ingestion

import (
	"errors"
	"testing"

	"github.com/bacmr/maktaba/internal/core"
)

func TestParseRejectsGarbage(t *testing.T) {
	p := NewPDFParser()

	for _, data := range [][]byte{
		nil,
		[]byte("not a pdf at all"),
		[]byte("%PDF-1.7 truncated garbage"),
	} {
		pages, total, err := p.Parse(data)
		if err == nil {
			t.Fatalf("expected an error for %q", data)
		}
		var perr *core.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected ParseError, got %T: %v", err, err)
		}
		if pages != nil || total != 0 {
			t.Fatalf("expected empty result on parse failure, got %d pages / total %d", len(pages), total)
		}
	}
}
