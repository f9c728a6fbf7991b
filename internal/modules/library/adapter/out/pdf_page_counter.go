package out

import (
	"context"
	"fmt"

	"rsc.io/pdf"

	libraryout "readjourney/internal/modules/library/port/out"
)

type PDFPageCounter struct{}

var _ libraryout.PageCounter = PDFPageCounter{}

func NewPDFPageCounter() PDFPageCounter {
	return PDFPageCounter{}
}

func (PDFPageCounter) CountPages(_ context.Context, path string) (int, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	total := doc.NumPage()
	if total <= 0 {
		return 0, fmt.Errorf("pdf %s has no pages", path)
	}
	return total, nil
}
