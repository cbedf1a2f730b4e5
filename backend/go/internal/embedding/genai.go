package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleModel 是一个用于 Google GenAI Embedding API 的客户端。
type GoogleModel struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// taskTypes 把配置中的任务类型映射到 genai 的枚举。
var taskTypes = map[string]genai.TaskType{
	"retrieval_query":     genai.TaskTypeRetrievalQuery,
	"retrieval_document":  genai.TaskTypeRetrievalDocument,
	"semantic_similarity": genai.TaskTypeSemanticSimilarity,
	"classification":      genai.TaskTypeClassification,
	"clustering":          genai.TaskTypeClustering,
}

// NewGoogleModel 创建并返回一个新的 GoogleModel 客户端实例。
//
// 参数:
//
//	apiKey: Google GenAI 的 API 密钥。
//	modelName: 要使用的 Embedding 模型名称。
//	taskType: 任务类型，为空时使用服务端默认值。
func NewGoogleModel(apiKey, modelName, taskType string) (*GoogleModel, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.EmbeddingModel(modelName)
	if taskType != "" {
		tt, ok := taskTypes[taskType]
		if !ok {
			client.Close()
			return nil, fmt.Errorf("unsupported gemini task type: %s", taskType)
		}
		model.TaskType = tt
	}
	return &GoogleModel{client: client, model: model}, nil
}

// Embed 为单个文本生成嵌入向量。
func (m *GoogleModel) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res == nil || res.Embedding == nil {
		return nil, fmt.Errorf("gemini returned no embedding")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch 为一批文本生成嵌入向量。
func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		embeddings = append(embeddings, emb.Values)
	}
	return embeddings, nil
}

// Close 关闭底层的 genai 客户端。
func (m *GoogleModel) Close() error {
	return m.client.Close()
}
