// Package extract implements the local text-extraction fallback used when
// no external document processor is configured.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/shelf-works/shelf/internal/domain"
)

// Text extracts plain text from raw file bytes according to the declared
// file type. Types the local fallback cannot handle (docx, audio) return an
// error; those require the external processor.
func Text(fileType domain.FileType, data []byte) (string, error) {
	switch fileType {
	case domain.FileTypePDF:
		return pdfText(data)
	case domain.FileTypeText, domain.FileTypeCSV:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("file is not valid UTF-8 text")
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("no local extractor for file type %q", fileType)
	}
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return buf.String(), nil
}

// TitleFromText derives a candidate title from the first non-empty line of
// the extracted text, truncated to a reasonable length.
func TitleFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > 80 {
			return string(runes[:80])
		}
		return line
	}
	return ""
}
