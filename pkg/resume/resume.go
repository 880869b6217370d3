// Package resume loads résumé text from disk.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmpty is returned when a file holds no extractable text.
var ErrEmpty = errors.New("resume has no text")

// Load returns the plain text of the résumé at path. PDF files are
// extracted; anything else is read as UTF-8 text.
func Load(path string) (string, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = loadPDF(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("load resume %s: %w", path, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("load resume %s: %w", path, ErrEmpty)
	}
	return text, nil
}

// ExtractPDF returns the plain text of an in-memory PDF, such as an upload.
func ExtractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	text, err := plainText(r)
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return plainText(r)
}

func plainText(r *pdf.Reader) (string, error) {
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
