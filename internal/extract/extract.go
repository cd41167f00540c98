// Package extract turns ingested files into raw text plus a page count.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"watchdog/internal/util"

	"github.com/ledongthuc/pdf"
)

const (
	MethodPDF        = "pdf"
	MethodDirectRead = "direct_read"
)

type Result struct {
	Text      string
	PageCount int
	Method    string
}

// File extracts text from a document on disk. PDFs go through the pdf reader
// page by page; plain-text formats are read directly and count as one page.
func File(path string) (Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(path)
	default:
		return plainText(path)
	}
}

func pdfText(path string) (Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	text := util.SanitizeText(strings.Join(pages, "\n\n"))
	if text == "" {
		return Result{}, util.ErrNoExtractableText
	}
	return Result{Text: text, PageCount: pageCount, Method: MethodPDF}, nil
}

func plainText(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return Result{}, fmt.Errorf("read file: %w", err)
	}
	text := util.SanitizeText(string(b))
	if text == "" {
		return Result{}, util.ErrNoExtractableText
	}
	return Result{Text: text, PageCount: 1, Method: MethodDirectRead}, nil
}
