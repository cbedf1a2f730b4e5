package embedding

import (
	"context"
	"errors"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/pkg/rotation"
)

// ErrShortVector 表示提供商返回的向量比配置维度短。短向量不会被补齐，视为该凭证失败。
var ErrShortVector = errors.New("embedding shorter than configured dimension")

// RotatingEmbedder 把多个可互换的 Embedding 凭证组合成一个固定维度的 Embedding。
// 每次调用按顺序尝试每个凭证一次，直到成功；超长向量截断到 D。
type RotatingEmbedder struct {
	pool      *rotation.Pool[Embedding]
	dimension int
}

// NewRotatingEmbedder 创建 RotatingEmbedder。
func NewRotatingEmbedder(pool *rotation.Pool[Embedding], dimension int) *RotatingEmbedder {
	return &RotatingEmbedder{pool: pool, dimension: dimension}
}

// Close 关闭所有凭证持有的客户端。
func (r *RotatingEmbedder) Close() error { return r.pool.Close() }

// Dimension 返回输出向量的维度。
func (r *RotatingEmbedder) Dimension() int { return r.dimension }

// Embed 为单个文本生成长度恰好为 D 的向量。
// 所有凭证都失败时返回包装了 rotation.ErrAllProvidersExhausted 的错误。
func (r *RotatingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.pool.Try(ctx, func(ctx context.Context, m Embedding) error {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return err
		}
		fitted, err := Fit(vec, r.dimension)
		if err != nil {
			return err
		}
		out = fitted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedBatch 为一批文本生成向量，整批使用同一个凭证。
func (r *RotatingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.pool.Try(ctx, func(ctx context.Context, m Embedding) error {
		vecs, err := m.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("provider returned %d embeddings for %d texts", len(vecs), len(texts))
		}
		fitted := make([][]float32, len(vecs))
		for i, vec := range vecs {
			if fitted[i], err = Fit(vec, r.dimension); err != nil {
				return err
			}
		}
		out = fitted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fit 把向量截断到 dimension。短于 dimension 时返回 ErrShortVector。
// 返回的切片是副本，不与输入共享底层数组。
func Fit(vec []float32, dimension int) ([]float32, error) {
	if len(vec) < dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShortVector, len(vec), dimension)
	}
	out := make([]float32, dimension)
	copy(out, vec[:dimension])
	return out, nil
}
