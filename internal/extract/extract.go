package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// MinPromptLength is the shortest extraction prompt we accept.
const MinPromptLength = 10

// RawTextKey is the field holding the backend's reply when it is not JSON.
const RawTextKey = "raw_text"

const systemPrompt = "You are a document information extractor. Return structured output as JSON."

var (
	// ErrPromptTooShort rejects empty or trivially short prompts.
	ErrPromptTooShort = fmt.Errorf("prompt must be at least %d characters", MinPromptLength)
	// ErrBackend is the stable cause for any LLM backend failure.
	ErrBackend = errors.New("ai extraction failed")
)

// chatModel is the slice of eino's chat-model surface the adapter needs.
// Tests substitute a fake; production uses an eino-ext provider model.
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Adapter turns OCR text plus a caller prompt into structured data via a
// chat-model backend. It imposes no schema of its own: the prompt is entirely
// caller-controlled.
type Adapter struct {
	model  chatModel
	logger *slog.Logger
}

// NewAdapter wraps a chat model.
func NewAdapter(m chatModel, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{model: m, logger: logger}
}

// ExtractStructured sends the document text with the caller's prompt and
// returns the parsed JSON reply. A reply that is not JSON is not a failure:
// it comes back as map{RawTextKey: reply}.
func (a *Adapter) ExtractStructured(ctx context.Context, text, prompt string) (any, error) {
	if len(strings.TrimSpace(prompt)) < MinPromptLength {
		return nil, ErrPromptTooShort
	}

	rid := uuid.New().String()
	start := time.Now()
	a.logger.Info("extract.start", "req_id", rid, "text_len", len(text), "prompt_len", len(prompt))

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(text, prompt)),
	}

	reply, err := a.model.Generate(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Error("extract.backend_failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, ErrBackend
	}

	content := strings.TrimSpace(reply.Content)
	data, structured := parseReply(content)
	a.logger.Info("extract.done", "req_id", rid, "structured", structured,
		"reply_len", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}

// buildUserPrompt embeds the document between explicit delimiters so the
// model can tell instructions from content.
func buildUserPrompt(text, prompt string) string {
	return prompt + "\n\n--- Begin Document ---\n" + text + "\n--- End Document ---"
}

// parseReply attempts to read the reply as a JSON object or array, tolerating
// markdown code fences. Anything else degrades to the raw-text form.
func parseReply(content string) (any, bool) {
	candidate := stripFences(content)

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}
	var arr []any
	if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
		return arr, true
	}
	return map[string]any{RawTextKey: content}, false
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
