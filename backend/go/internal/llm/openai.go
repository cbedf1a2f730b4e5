package llm

import (
	"context"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI API (或兼容网关) 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAI 创建一个新的 OpenAI 客户端。baseURL 为空时使用官方地址。
func NewOpenAI(model, apiKey, baseURL string) (*OpenAI, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// GenerateContent 使用 OpenAI Chat Completions 生成内容。
func (o *OpenAI) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	return o.toGenerateContentResponse(&resp), nil
}

// toOpenAIRequest 将内部请求格式转换为 OpenAI 格式。
func (o *OpenAI) toOpenAIRequest(req *models.GenerateContentRequest) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	for _, content := range req.Content {
		role := openai.ChatMessageRoleUser
		if content.Role == models.SpeakerSystem {
			role = openai.ChatMessageRoleSystem
		}
		for _, part := range content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: part.Text})
		}
	}
	r := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if t := req.Temperature; t > 0 {
		r.Temperature = &t
	}
	return r
}

// toGenerateContentResponse 将 OpenAI 响应转换为内部格式。
func (o *OpenAI) toGenerateContentResponse(resp *openai.ChatCompletionResponse) *models.GenerateContentResponse {
	var content []models.Content
	for _, choice := range resp.Choices {
		content = append(content, models.Content{
			Parts: []*models.Part{{Text: choice.Message.Content}},
			Role:  models.SpeakerModel,
		})
	}
	return &models.GenerateContentResponse{Content: content, ModelVersion: resp.Model}
}
