package llm

import (
	"context"

	"TicketBlitz_Recommendation/backend/go/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于创建客户端。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: client.GenerativeModel(model)}, nil
}

// GenerateContent 向 Gemini API 发送一次单轮请求。
// 请求中的温度只作用于本次调用，不修改共享的模型配置。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	model := *g.model
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}

	resp, err := model.GenerateContent(ctx, toGenaiParts(req.Content)...)
	if err != nil {
		return nil, err
	}
	return fromGenaiResponse(resp), nil
}

// Close 关闭底层的 genai 客户端。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// toGenaiParts 将内部 Content 结构体转换为 GenAI Part 切片。
func toGenaiParts(content []models.Content) []genai.Part {
	var parts []genai.Part
	for _, c := range content {
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
	}
	return parts
}

// fromGenaiResponse 将 GenAI 响应转换为内部响应，只保留文本部分。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	if resp == nil {
		return nil
	}
	var content []models.Content
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var parts []*models.Part
		for _, p := range cand.Content.Parts {
			if text, ok := p.(genai.Text); ok {
				parts = append(parts, &models.Part{Text: string(text)})
			}
		}
		content = append(content, models.Content{Parts: parts, Role: models.SpeakerModel})
	}
	return &models.GenerateContentResponse{Content: content}
}
