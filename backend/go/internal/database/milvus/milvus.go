package milvus

import (
	"context"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/sirupsen/logrus"
)

// 集合字段名。
const (
	FieldEventID     = "event_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldLocation    = "location"
	FieldPrice       = "price"
	FieldDate        = "date_unix_nano"
	FieldImageURLs   = "image_urls"
	FieldCreatedAt   = "created_at_unix_nano"
	FieldEmbedding   = "embedding"
)

// 各 VarChar 字段的最大长度。
const (
	maxShortText = 512
	maxLongText  = 8192
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client       // Milvus 客户端实例。
	Config config.MilvusConfig // Milvus 配置。
}

// NewClient 连接到 Milvus。
func NewClient(ctx context.Context, cfg config.MilvusConfig) (*MilvusClient, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	return &MilvusClient{Client: c, Config: cfg}, nil
}

// Close 关闭与 Milvus 的连接。
func (c *MilvusClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// Schema 返回维度为 dim 的事件向量集合定义。
func Schema(collName string, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(collName).
		WithDescription("event embeddings for similarity search").
		WithField(entity.NewField().WithName(FieldEventID).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(FieldTitle).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxShortText)).
		WithField(entity.NewField().WithName(FieldDescription).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxLongText)).
		WithField(entity.NewField().WithName(FieldCategory).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxShortText)).
		WithField(entity.NewField().WithName(FieldLocation).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxShortText)).
		WithField(entity.NewField().WithName(FieldPrice).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxShortText)).
		WithField(entity.NewField().WithName(FieldDate).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldImageURLs).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxLongText)).
		WithField(entity.NewField().WithName(FieldCreatedAt).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))
}

// EnsureCollection 确保集合和 COSINE 索引存在，并加载集合。
func (c *MilvusClient) EnsureCollection(ctx context.Context, dim int) error {
	collName := c.Config.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		if err := c.Client.CreateCollection(ctx, Schema(collName, dim), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		nlist := c.Config.NList
		if nlist <= 0 {
			nlist = 128
		}
		idx, err := entity.NewIndexIvfFlat(entity.COSINE, nlist)
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
		}
		logrus.WithField("collection", collName).Info("已创建 Milvus 集合")
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}
