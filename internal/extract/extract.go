package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"linkedin-optimizer/internal/shared/storage/object"
)

const mimePDF = "application/pdf"

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Metadata describes a PDF document.
type Metadata struct {
	PageCount int    `json:"page_count"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Subject   string `json:"subject"`
	Creator   string `json:"creator"`
	Producer  string `json:"producer"`
}

// PDFExtractor extracts text with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// ExtractText returns the text of every page separated by a blank line.
func (PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := open(data)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}
	return strings.TrimSpace(buf.String()), nil
}

// ExtractFile reads path and extracts its text with x.
func ExtractFile(ctx context.Context, x Extractor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract text path=%s: %w", path, err)
	}
	return x.ExtractText(ctx, data)
}

// ExtractStored pulls a stored document, extracts it and persists a derived
// .extracted.txt copy next to it.
func ExtractStored(ctx context.Context, x Extractor, store object.ObjectStore, fileKey string) (string, error) {
	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: read: %w", fileKey, err)
	}
	text, err := x.ExtractText(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}
	if _, err := store.SaveWithKey(ctx, object.TextKey(fileKey), object.TextContentType, strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}
	return text, nil
}

// Meta reads the page count and document info dictionary.
func Meta(data []byte) (Metadata, error) {
	r, err := open(data)
	if err != nil {
		return Metadata{}, err
	}
	info := r.Trailer().Key("Info")
	return Metadata{
		PageCount: r.NumPage(),
		Title:     info.Key("Title").Text(),
		Author:    info.Key("Author").Text(),
		Subject:   info.Key("Subject").Text(),
		Creator:   info.Key("Creator").Text(),
		Producer:  info.Key("Producer").Text(),
	}, nil
}

// Validate reports whether data parses as a PDF.
func Validate(data []byte) bool {
	_, err := open(data)
	return err == nil
}

// IsPDFName reports whether a file name carries the .pdf extension.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".pdf")
}

// MimeType is the content type used when archiving uploads.
func MimeType() string { return mimePDF }

func open(data []byte) (r *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty pdf data")
	}
	// The pdf package panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error extracting text from PDF: %w", err)
	}
	return r, nil
}
