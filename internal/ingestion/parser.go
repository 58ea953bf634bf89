package ingestion

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bacmr/maktaba/internal/core"
)

// PDFParser extracts per-page plain text with ledongthuc/pdf.
type PDFParser struct{}

var _ core.Parser = (*PDFParser)(nil)

func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse returns the non-empty pages in order plus the total page count of the
// document. Pages whose extracted text is blank (image-only scans, covers) are
// omitted but still count toward the total. Malformed or password-protected
// input yields a ParseError, which is fatal for the owning job.
func (p *PDFParser) Parse(data []byte) (pages []core.Page, totalPages int, err error) {
	// The pdf library panics on some malformed inputs instead of returning an
	// error; fold those into ParseError as well.
	defer func() {
		if r := recover(); r != nil {
			pages, totalPages = nil, 0
			err = &core.ParseError{Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, &core.ParseError{Err: err}
	}

	totalPages = reader.NumPage()

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page is treated like an empty one; it still
			// counts toward totalPages.
			log.Printf("PDFParser: page %d unreadable, skipping: %v", i, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, core.Page{PageNumber: i, Text: text})
	}

	return pages, totalPages, nil
}
