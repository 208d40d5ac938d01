// Package loader extracts plain text from user supplied documents.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType is returned for file extensions the loader cannot read.
var ErrUnsupportedType = errors.New("unsupported document type")

// Supported reports whether path has an extension ReadFile understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// ReadFile returns the text content of a .txt, .md or .pdf file. Invalid
// UTF-8 sequences are dropped.
func ReadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.ToValidUTF8(string(data), ""), nil
	case ".pdf":
		return readPDF(path)
	default:
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedType)
	}
}

// readPDF joins the plain text of every page; pages that fail to decode are
// skipped. A malformed file reports an error instead of panicking.
func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", filepath.Base(path), r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	pages := make([]plainTexter, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, page)
	}
	return strings.ToValidUTF8(joinPages(pages), ""), nil
}

type plainTexter interface {
	GetPlainText(fonts map[string]*pdf.Font) (string, error)
}

func joinPages(pages []plainTexter) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		text, err := pageText(p)
		if err != nil {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

// pageText extracts one page, turning a decoder panic into an error.
func pageText(p plainTexter) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf page: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}
