package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docreader/internal/extract"
	"docreader/internal/models"
	"docreader/internal/ocr"
	"docreader/internal/staging"

	"github.com/google/uuid"
)

// Extractor is the LLM collaborator contract.
type Extractor interface {
	ExtractStructured(ctx context.Context, text, prompt string) (any, error)
}

// Processor sequences staging, OCR, and optional AI extraction for one
// request under a single wall-clock budget. Whatever the outcome, the staged
// file is released before the processor returns.
type Processor struct {
	staging   *staging.Area
	engine    ocr.Engine
	extractor Extractor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewProcessor wires the pipeline collaborators.
func NewProcessor(area *staging.Area, engine ocr.Engine, extractor Extractor, timeout time.Duration, logger *slog.Logger) *Processor {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		staging:   area,
		engine:    engine,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
	}
}

// RunOCR stages the upload and extracts its text with a confidence score.
func (p *Processor) RunOCR(ctx context.Context, content []byte, declaredName string) (models.OCRResult, *Error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, perr := p.stageAndExtract(ctx, rid, content, declaredName)
	if perr != nil {
		p.logger.Warn("pipeline.failed", "req_id", rid, "kind", string(perr.Kind),
			"elapsed_ms", time.Since(start).Milliseconds())
		return models.OCRResult{}, perr
	}
	p.logger.Info("pipeline.completed", "req_id", rid, "method", result.Method,
		"pages", result.Pages, "text_len", result.TextLength(),
		"confidence", result.Confidence, "elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

// RunExtract stages the upload, extracts its text, then asks the LLM backend
// to structure it according to the caller's prompt.
func (p *Processor) RunExtract(ctx context.Context, content []byte, declaredName, prompt string) (models.OCRResult, any, *Error) {
	rid := uuid.New().String()
	start := time.Now()

	// Prompt validation happens before any staging I/O.
	if len(strings.TrimSpace(prompt)) < extract.MinPromptLength {
		return models.OCRResult{}, nil, newError(KindInvalidPrompt, extract.ErrPromptTooShort.Error(), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, perr := p.stageAndExtract(ctx, rid, content, declaredName)
	if perr != nil {
		p.logger.Warn("pipeline.failed", "req_id", rid, "kind", string(perr.Kind),
			"elapsed_ms", time.Since(start).Milliseconds())
		return models.OCRResult{}, nil, perr
	}

	p.logger.Debug("pipeline.state", "req_id", rid, "state", "ai_extracting")
	data, err := p.extractor.ExtractStructured(ctx, result.Text, prompt)
	if err != nil {
		perr := p.mapExtractionError(err)
		p.logger.Warn("pipeline.failed", "req_id", rid, "kind", string(perr.Kind),
			"elapsed_ms", time.Since(start).Milliseconds())
		return models.OCRResult{}, nil, perr
	}

	p.logger.Info("pipeline.completed", "req_id", rid, "method", result.Method,
		"confidence", result.Confidence, "elapsed_ms", time.Since(start).Milliseconds())
	return result, data, nil
}

// stageAndExtract covers the Received -> Staged -> Extracted(Text) leg shared
// by both operations. The staged file is released before it returns.
func (p *Processor) stageAndExtract(ctx context.Context, rid string, content []byte, declaredName string) (models.OCRResult, *Error) {
	staged, err := p.staging.Stage(content, declaredName)
	if err != nil {
		return models.OCRResult{}, p.mapStagingError(err)
	}
	defer staged.Release()
	p.logger.Debug("pipeline.state", "req_id", rid, "state", "staged", "path", staged.Path)

	result, err := p.engine.Extract(ctx, staged.Path)
	if err != nil {
		if isTimeout(ctx, err) {
			return models.OCRResult{}, newError(KindTimeout, "processing timed out", err)
		}
		return models.OCRResult{}, newError(KindOCRFailure, "OCR processing failed", err)
	}
	p.logger.Debug("pipeline.state", "req_id", rid, "state", "extracted")
	return result, nil
}

func (p *Processor) mapStagingError(err error) *Error {
	switch {
	case errors.Is(err, staging.ErrInvalidFileType):
		return newError(KindInvalidFileType, staging.ErrInvalidFileType.Error(), nil)
	case errors.Is(err, staging.ErrFileTooLarge):
		return newError(KindFileTooLarge, staging.ErrFileTooLarge.Error(), nil)
	default:
		return newError(KindStagingFailure, "failed to save file", err)
	}
}

func (p *Processor) mapExtractionError(err error) *Error {
	switch {
	case errors.Is(err, extract.ErrPromptTooShort):
		return newError(KindInvalidPrompt, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, "processing timed out", err)
	default:
		return newError(KindExtractionFailure, "AI extraction failed", err)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
