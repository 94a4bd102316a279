package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine turns an image file into raw text.
type Engine interface {
	Text(ctx context.Context, imagePath string) (string, error)
}

// TesseractEngine runs Tesseract through gosseract. A fresh client is
// created per call so the engine is safe for concurrent use.
type TesseractEngine struct {
	Languages   []string
	PageSegMode int

	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs an engine for the given languages and page
// segmentation mode (0 keeps the Tesseract default).
func NewTesseractEngine(langs []string, psm int) *TesseractEngine {
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &TesseractEngine{Languages: langs, PageSegMode: psm, clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Text(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()
	if err := c.SetLanguage(e.Languages...); err != nil {
		return "", fmt.Errorf("set languages %s: %w", strings.Join(e.Languages, "+"), err)
	}
	if e.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.PageSegMode)); err != nil {
			return "", fmt.Errorf("set psm %d: %w", e.PageSegMode, err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
