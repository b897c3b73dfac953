package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docreader/internal/config"
	"docreader/internal/models"
)

// Engine extracts text plus a confidence score from a staged PDF.
type Engine interface {
	Extract(ctx context.Context, path string) (models.OCRResult, error)
}

// minTextLayerChars is the threshold below which a pdftotext result is
// considered a scanned document and handed to the raster+OCR path.
const minTextLayerChars = 16

// TesseractEngine extracts text with poppler and tesseract. Digitally
// produced PDFs are served from their text layer; scanned ones are rasterized
// and recognized page by page.
type TesseractEngine struct {
	cfg    config.OCRConfig
	runner Runner
	policy ScorePolicy
	logger *slog.Logger
}

// NewTesseractEngine fills binary-name and language defaults.
func NewTesseractEngine(cfg config.OCRConfig, policy ScorePolicy, logger *slog.Logger) *TesseractEngine {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if policy == nil {
		policy = MeanScore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg, runner: execRunner{logger: logger}, policy: policy, logger: logger}
}

// Extract implements Engine. Errors never carry document content or backend
// stderr; those stay in the logs.
func (e *TesseractEngine) Extract(ctx context.Context, path string) (models.OCRResult, error) {
	start := time.Now()

	text, pages, err := e.pdfToText(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return models.OCRResult{}, ctx.Err()
		}
		return models.OCRResult{}, fmt.Errorf("read pdf: %w", errBackend)
	}
	if len(strings.TrimSpace(text)) >= minTextLayerChars {
		// Digital text layer, no recognition involved.
		return models.OCRResult{
			Text:       text,
			Confidence: 1.0,
			Pages:      pages,
			Method:     "pdf-text",
			Duration:   time.Since(start),
		}, nil
	}

	res, err := e.pdfToOCR(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return models.OCRResult{}, ctx.Err()
		}
		return models.OCRResult{}, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// errBackend is the generic cause attached to engine failures so callers get
// a stable, non-sensitive message.
var errBackend = errors.New("ocr backend error")

func (e *TesseractEngine) pdfToText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, err
	}
	text := string(out)
	// pdftotext separates pages with form feeds
	pages := 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil
}

func (e *TesseractEngine) pdfToOCR(ctx context.Context, path string) (models.OCRResult, error) {
	tmpDir, err := os.MkdirTemp("", "docreader-pages-*")
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("create raster dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.raster_cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	if _, _, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix); err != nil {
		return models.OCRResult{}, fmt.Errorf("rasterize pdf: %w", errBackend)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return models.OCRResult{}, fmt.Errorf("no pages rendered: %w", errBackend)
	}

	var b strings.Builder
	var confs []float64
	for _, img := range matches {
		words, err := e.tesseractTSV(ctx, img)
		if err != nil {
			return models.OCRResult{}, err
		}
		pageText := assembleText(words)
		if b.Len() > 0 && pageText != "" {
			b.WriteString("\n\f\n")
		}
		b.WriteString(pageText)
		for _, w := range words {
			confs = append(confs, w.conf)
		}
	}

	return models.OCRResult{
		Text:       b.String(),
		Confidence: e.policy.Score(confs),
		Pages:      len(matches),
		Method:     "pdf-ocr",
	}, nil
}
