package llm

import (
	"context"
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/internal/models"
)

// LLM 定义了 AI 层使用的大语言模型客户端接口。每次调用都是独立的单轮补全，不保留会话历史。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
}

// NewLLM 是一个工厂函数，根据一个凭证配置创建实现了 LLM 接口的客户端。
func NewLLM(cred config.CredentialConfig, timeout time.Duration) (LLM, error) {
	switch cred.Provider {
	case "gemini", "google":
		return NewGemini(context.Background(), cred.Model, cred.APIKey)
	case "openai":
		return NewOpenAI(cred.Model, cred.APIKey, cred.BaseURL)
	case "ollama":
		return NewOllama(cred.Model, cred.BaseURL, timeout)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cred.Provider)
	}
}
