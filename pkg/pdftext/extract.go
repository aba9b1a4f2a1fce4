// Package pdftext pulls plain text out of PDF attachments so they can be
// summarized like post content.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnreadable means the document could not be parsed: corrupt,
	// truncated, or encrypted.
	ErrUnreadable = errors.New("pdftext: unreadable document")
	// ErrNoText means the document parsed but no page carried text.
	ErrNoText = errors.New("pdftext: no extractable text")
)

// Extract returns the text of every page that has any, joined with "\n".
func Extract(r io.ReaderAt, size int64) (text string, err error) {
	// the parser panics on some malformed object graphs
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var pages []string
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		if strings.TrimSpace(txt) != "" {
			pages = append(pages, txt)
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n"), nil
}

// ExtractBytes is Extract over an in-memory document.
func ExtractBytes(data []byte) (string, error) {
	return Extract(bytes.NewReader(data), int64(len(data)))
}
