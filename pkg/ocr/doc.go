// Package ocr prepares prescription photos for Tesseract and returns cleaned
// text. Preprocessing is a fixed filter chain; a couple of thresholded
// fallback passes run when the primary pass reads almost nothing.
package ocr
