package embedding

import (
	"fmt"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/pkg/rotation"
)

// NewEmdModel 根据一个凭证配置创建并返回 Embedding 模型实例。
//
// 参数:
//
//	cred: 凭证配置，包含提供商、模型、API 密钥和基础 URL。
//	taskType: Gemini 的任务类型 (例如 "retrieval_document")，其他提供商忽略。
//	timeout: 底层 HTTP 客户端的超时 (仅 ollama 使用，其他提供商依赖 context 超时)。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(cred config.CredentialConfig, taskType string, timeout time.Duration) (Embedding, error) {
	switch ModelType(cred.Provider) {
	case Gemini, "google":
		return NewGoogleModel(cred.APIKey, cred.Model, taskType)
	case OpenAI:
		return NewOpenAIModel(cred.APIKey, cred.Model, cred.BaseURL)
	case Ollama:
		return NewOllamaModel(cred.Model, cred.BaseURL, timeout)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cred.Provider)
	}
}

// NewRotatingFromConfig 按配置顺序为每个凭证创建模型，并组合为 RotatingEmbedder。
// 额外的 rotation.Option 用于挂载日志和指标。
func NewRotatingFromConfig(cfg config.EmbeddingConfig, opts ...rotation.Option) (*RotatingEmbedder, error) {
	creds := make([]rotation.Credential[Embedding], 0, len(cfg.Credentials))
	for i, c := range cfg.Credentials {
		model, err := NewEmdModel(c, cfg.TaskType, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("embedding credential %d: %w", i+1, err)
		}
		creds = append(creds, rotation.Credential[Embedding]{
			Label:  fmt.Sprintf("Key %d", i+1),
			Client: model,
		})
	}
	base := []rotation.Option{
		rotation.WithClassifier(ClassifyFailure),
		rotation.WithTimeout(cfg.Timeout),
	}
	pool := rotation.New("embedding", creds, append(base, opts...)...)
	return NewRotatingEmbedder(pool, cfg.Dimension), nil
}
