package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
// baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	client := olla.NewClient(parsedURL, &http.Client{Timeout: timeout})
	return &Ollama{client: client, model: model}, nil
}

// GenerateContent 使用 Ollama 的非流式 Generate 接口生成内容。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	stream := false
	genReq := &olla.GenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt(),
		Stream: &stream,
	}
	if req.Temperature > 0 {
		genReq.Options = map[string]interface{}{"temperature": req.Temperature}
	}

	var result *olla.GenerateResponse
	err := o.client.Generate(ctx, genReq, func(resp olla.GenerateResponse) error {
		result = &resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("ollama returned no response")
	}

	return &models.GenerateContentResponse{
		Content: []models.Content{{
			Parts: []*models.Part{{Text: result.Response}},
			Role:  models.SpeakerModel,
		}},
		ModelVersion: result.Model,
	}, nil
}
