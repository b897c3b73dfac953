package api

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"docreader/internal/auth"
	"docreader/internal/models"
	"docreader/internal/pipeline"

	"github.com/gin-gonic/gin"
)

// DocumentProcessor is the pipeline contract the handlers depend on.
type DocumentProcessor interface {
	RunOCR(ctx context.Context, content []byte, declaredName string) (models.OCRResult, *pipeline.Error)
	RunExtract(ctx context.Context, content []byte, declaredName, prompt string) (models.OCRResult, any, *pipeline.Error)
}

// Handler wires the document endpoints to the processing pipeline.
type Handler struct {
	processor   DocumentProcessor
	gate        *auth.Gate
	maxFileSize int64
	logger      *slog.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(processor DocumentProcessor, gate *auth.Gate, maxFileSize int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		processor:   processor,
		gate:        gate,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	authMW := h.gate.Middleware()
	router.POST("/ocr", authMW, h.extractText)
	router.POST("/extract", authMW, h.extractStructured)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "document-reader-api",
	})
}

func (h *Handler) extractText(c *gin.Context) {
	content, name, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, perr := h.processor.RunOCR(c.Request.Context(), content, name)
	if perr != nil {
		failJSON(c, perr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"text":             result.Text,
		"confidence_score": result.Confidence,
		"text_length":      result.TextLength(),
	})
}

func (h *Handler) extractStructured(c *gin.Context) {
	content, name, ok := h.readUpload(c)
	if !ok {
		return
	}
	prompt := c.PostForm("prompt")

	result, data, perr := h.processor.RunExtract(c.Request.Context(), content, name, prompt)
	if perr != nil {
		failJSON(c, perr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"confidence_score": result.Confidence,
		"extracted_data":   data,
	})
}

// readUpload pulls the multipart "file" field into memory. The declared size
// is checked first so an oversized upload fails before buffering; staging
// re-checks the buffered length.
func (h *Handler) readUpload(c *gin.Context) ([]byte, string, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return nil, "", false
	}
	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "file too large"})
		return nil, "", false
	}
	content, err := readAll(file)
	if err != nil {
		h.logger.Error("api.read_upload_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read file"})
		return nil, "", false
	}
	return content, file.Filename, true
}

func readAll(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func failJSON(c *gin.Context, perr *pipeline.Error) {
	c.JSON(perr.HTTPStatus(), gin.H{
		"success": false,
		"error":   perr.Message,
	})
}
