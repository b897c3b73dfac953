package models

import "time"

// OCRResult is the normalized output of a text-extraction run.
// Confidence is always populated when extraction succeeds, even for
// documents that yield no text.
type OCRResult struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"` // 0..1
	Pages      int           `json:"pages"`
	Method     string        `json:"method"` // "pdf-text" | "pdf-ocr"
	Duration   time.Duration `json:"-"`
}

// TextLength reports the length of the extracted text in bytes.
func (r OCRResult) TextLength() int {
	return len(r.Text)
}
