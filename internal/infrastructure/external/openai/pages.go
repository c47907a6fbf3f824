package openai

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/garyjia/claim-review/internal/application/port"
)

// renderPages turns a stored document into JPEG page images. PDFs are
// rasterized with mupdf up to maxPages; JPEG and PNG files become one page.
func renderPages(doc *port.Document, maxPages int) ([][]byte, error) {
	switch {
	case isPDF(doc):
		return renderPDF(doc.Content, maxPages)
	case strings.HasPrefix(doc.ContentType, "image/jpeg"), strings.HasPrefix(doc.ContentType, "image/png"):
		img, _, err := image.Decode(bytes.NewReader(doc.Content))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		page, err := encodeJPEG(img)
		if err != nil {
			return nil, err
		}
		return [][]byte{page}, nil
	default:
		return nil, fmt.Errorf("unsupported document type: %q", doc.ContentType)
	}
}

func isPDF(doc *port.Document) bool {
	return doc.ContentType == "application/pdf" || bytes.HasPrefix(doc.Content, []byte("%PDF-"))
}

func renderPDF(content []byte, maxPages int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		page, err := encodeJPEG(img)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	return pages, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
