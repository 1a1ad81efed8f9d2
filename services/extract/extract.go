// Package extractsvc pulls plain text out of uploaded documents so the
// assistant can analyze them.
package extractsvc

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

const (
	// maxPDFPages caps how much of a PDF is read; long uploads get partial
	// feedback rather than timeouts.
	maxPDFPages = 10

	// maxChars bounds the text handed to the analyzer.
	maxChars = 20000
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Text extracts readable text from the upload. The format is decided by the
// filename extension; size is needed by the PDF reader.
func Text(ctx context.Context, r io.ReaderAt, size int64, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md":
		return capped(readAll(r, size))
	case ".csv":
		docs, err := documentloaders.NewCSV(sectionReader(r, size)).Load(ctx)
		if err != nil {
			return "", errors.Wrap(err, "reading csv")
		}
		return capped(joinDocs(docs), nil)
	case ".html", ".htm":
		docs, err := documentloaders.NewHTML(sectionReader(r, size)).Load(ctx)
		if err != nil {
			return "", errors.Wrap(err, "reading html")
		}
		return capped(joinDocs(docs), nil)
	case ".pdf":
		docs, err := documentloaders.NewPDF(r, size).Load(ctx)
		if err != nil {
			return "", errors.Wrap(err, "reading pdf")
		}
		if len(docs) > maxPDFPages {
			docs = docs[:maxPDFPages]
		}
		return capped(joinDocs(docs), nil)
	}
	return "", ErrUnsupportedFormat
}

func sectionReader(r io.ReaderAt, size int64) io.Reader {
	return io.NewSectionReader(r, 0, size)
}

func readAll(r io.ReaderAt, size int64) (string, error) {
	b, err := io.ReadAll(sectionReader(r, size))
	if err != nil {
		return "", errors.Wrap(err, "reading document")
	}
	return string(b), nil
}

func joinDocs(docs []schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if s := strings.TrimSpace(d.PageContent); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func capped(text string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}
