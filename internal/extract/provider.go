package extract

import (
	"context"
	"fmt"

	"docreader/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"google.golang.org/genai"
)

const defaultMaxTokens = 4096

// NewChatModel constructs the configured provider's chat model.
func NewChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (chatModel, error) {
	switch provider {
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		m, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: defaultMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init claude model: %w", err)
		}
		return m, nil
	case "openai":
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai model: %w", err)
		}
		return m, nil
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: provCfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		m, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini model: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}
