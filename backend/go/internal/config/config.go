package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 是覆盖配置项的环境变量前缀，例如 RECO_KAFKA_GROUPID 覆盖 kafka.groupID。
const EnvPrefix = "RECO_"

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name" koanf:"name"`               // 应用程序名称
	Version     string `yaml:"version" koanf:"version"`         // 应用程序版本
	Environment string `yaml:"environment" koanf:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level" koanf:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// TopicsConfig 定义了服务使用的三个主题。
type TopicsConfig struct {
	EventsCreated         string `yaml:"eventsCreated" koanf:"eventscreated"`                 // 事件创建主题
	RecommendationRequest string `yaml:"recommendationRequest" koanf:"recommendationrequest"` // 推荐请求（预订触发）主题
	EmailDispatch         string `yaml:"emailDispatch" koanf:"emaildispatch"`                 // 邮件发送主题
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers     []string      `yaml:"brokers" koanf:"brokers"`         // Kafka Broker 地址列表
	GroupID     string        `yaml:"groupID" koanf:"groupid"`         // 消费组前缀，两个消费循环分别追加后缀
	Topics      TopicsConfig  `yaml:"topics" koanf:"topics"`           // 主题配置
	DialTimeout time.Duration `yaml:"dialTimeout" koanf:"dialtimeout"` // 连接超时
	AutoCreate  bool          `yaml:"autoCreate" koanf:"autocreate"`   // 启动时是否自动创建缺失的主题
}

// IngestionGroupID 返回事件入库循环的消费组。
func (k KafkaConfig) IngestionGroupID() string { return k.GroupID + "-event-ingestion" }

// RecommendationGroupID 返回推荐循环的消费组。
func (k KafkaConfig) RecommendationGroupID() string { return k.GroupID + "-recommendation" }

// CredentialConfig 描述一个模型凭证。同一提供商可以配置多个凭证，按顺序轮换。
type CredentialConfig struct {
	Provider string `yaml:"provider" koanf:"provider"` // 提供商: "gemini", "openai", "ollama"
	Model    string `yaml:"model" koanf:"model"`       // 模型名称
	APIKey   string `yaml:"apiKey" koanf:"apikey"`     // API 密钥
	BaseURL  string `yaml:"baseURL" koanf:"baseurl"`   // 服务地址 (ollama 或兼容 OpenAI 的网关)
}

// EmbeddingConfig 定义了向量生成的配置。
type EmbeddingConfig struct {
	Dimension   int                `yaml:"dimension" koanf:"dimension"`     // 向量维度 D
	TaskType    string             `yaml:"taskType" koanf:"tasktype"`       // Gemini 的任务类型
	Timeout     time.Duration      `yaml:"timeout" koanf:"timeout"`         // 单个凭证调用的超时
	Credentials []CredentialConfig `yaml:"credentials" koanf:"credentials"` // 有序凭证列表
}

// GenerationConfig 定义了 AI 层内容生成的配置。
type GenerationConfig struct {
	Temperature float32            `yaml:"temperature" koanf:"temperature"` // 采样温度
	Timeout     time.Duration      `yaml:"timeout" koanf:"timeout"`         // 单个凭证调用的超时
	Credentials []CredentialConfig `yaml:"credentials" koanf:"credentials"` // 有序凭证列表，与 embedding 凭证相互独立
	RateLimit   RateLimitConfig    `yaml:"rateLimit" koanf:"ratelimit"`     // AI 层调用速率上限，超出时直接降级到缓存层
}

// RateLimitConfig 定义令牌桶参数，任一值不为正时不限流。
type RateLimitConfig struct {
	PerSecond float64 `yaml:"perSecond" koanf:"persecond"` // 每秒补充的令牌数
	Burst     int     `yaml:"burst" koanf:"burst"`         // 桶容量
}

// RecommendationConfig 定义了推荐流程的参数。
type RecommendationConfig struct {
	TopK          int    `yaml:"topK" koanf:"topk"`                   // 相似事件数量 K
	FallbackCount int    `yaml:"fallbackCount" koanf:"fallbackcount"` // 缓存层与外部服务层最多列出的事件数
	LatestLimit   int    `yaml:"latestLimit" koanf:"latestlimit"`     // 从缓存或外部服务获取的最新事件数
	Brand         string `yaml:"brand" koanf:"brand"`                 // 邮件签名中使用的品牌名
}

// StoreConfig 选择相似度存储的后端。
type StoreConfig struct {
	Backend string        `yaml:"backend" koanf:"backend"` // "postgres", "milvus" 或 "memory"
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"` // 单次存储操作的超时
	Migrate bool          `yaml:"migrate" koanf:"migrate"` // 启动时是否建表/建集合
}

// PostgresConfig 定义了 PostgreSQL (pgvector) 的连接配置。
type PostgresConfig struct {
	DSN             string        `yaml:"dsn" koanf:"dsn"`                         // 连接串
	MaxOpenConns    int           `yaml:"maxOpenConns" koanf:"maxopenconns"`       // 最大打开连接数
	MaxIdleConns    int           `yaml:"maxIdleConns" koanf:"maxidleconns"`       // 最大空闲连接数
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" koanf:"connmaxlifetime"` // 连接最大生命周期
	IVFLists        int           `yaml:"ivfLists" koanf:"ivflists"`               // ivfflat 索引的 lists 参数
}

// MySQLConfig 定义了 MySQL 数据库的连接配置，milvus 后端用它保存预订历史。
type MySQLConfig struct {
	Address         string        `yaml:"address" koanf:"address"`                 // MySQL 服务器地址
	Username        string        `yaml:"username" koanf:"username"`               // 用户名
	Password        string        `yaml:"password" koanf:"password"`               // 密码
	Database        string        `yaml:"database" koanf:"database"`               // 数据库名称
	MaxOpenConns    int           `yaml:"maxOpenConns" koanf:"maxopenconns"`       // 最大打开连接数
	MaxIdleConns    int           `yaml:"maxIdleConns" koanf:"maxidleconns"`       // 最大空闲连接数
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" koanf:"connmaxlifetime"` // 连接最大生命周期
}

// MilvusConfig 定义了 Milvus 向量数据库的连接配置。
type MilvusConfig struct {
	Address        string `yaml:"address" koanf:"address"`               // Milvus 服务地址
	CollectionName string `yaml:"collectionName" koanf:"collectionname"` // 集合名称
	NList          int    `yaml:"nlist" koanf:"nlist"`                   // IVF_FLAT 索引的 nlist
	NProbe         int    `yaml:"nprobe" koanf:"nprobe"`                 // 搜索时的 nprobe
}

// RedisConfig 定义了缓存层使用的 Redis 配置。
type RedisConfig struct {
	Address        string        `yaml:"address" koanf:"address"`               // Redis 服务器地址 (例如: "localhost:6379")
	Password       string        `yaml:"password" koanf:"password"`             // Redis 密码
	DB             int           `yaml:"db" koanf:"db"`                         // Redis 数据库编号
	Timeout        time.Duration `yaml:"timeout" koanf:"timeout"`               // 读写超时
	LatestKey      string        `yaml:"latestKey" koanf:"latestkey"`           // 按时间排序的最新事件有序集合
	EventKeyPrefix string        `yaml:"eventKeyPrefix" koanf:"eventkeyprefix"` // 单个事件 JSON 的键前缀
}

// EtcdConfig 定义了 Etcd 服务发现的连接配置。
type EtcdConfig struct {
	Endpoints   []string      `yaml:"endpoints" koanf:"endpoints"`     // Etcd 节点地址列表
	Username    string        `yaml:"username" koanf:"username"`       // 用户名
	Password    string        `yaml:"password" koanf:"password"`       // 密码
	DialTimeout time.Duration `yaml:"dialTimeout" koanf:"dialtimeout"` // 连接超时
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Postgres PostgresConfig `yaml:"postgres" koanf:"postgres"` // PostgreSQL 配置
	MySQL    MySQLConfig    `yaml:"mysql" koanf:"mysql"`       // MySQL 配置
	Milvus   MilvusConfig   `yaml:"milvus" koanf:"milvus"`     // Milvus 配置
	Redis    RedisConfig    `yaml:"redis" koanf:"redis"`       // Redis 配置
	Etcd     EtcdConfig     `yaml:"etcd" koanf:"etcd"`         // Etcd 配置
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" koanf:"enabled"`
	FailureThreshold uint32        `yaml:"failureThreshold" koanf:"failurethreshold"` // 连续失败多少次后熔断
	SuccessThreshold uint32        `yaml:"successThreshold" koanf:"successthreshold"` // 半开状态下允许的试探请求数
	Timeout          time.Duration `yaml:"timeout" koanf:"timeout"`                   // 熔断后多久进入半开状态
}

// DiscoveryConfig 定义了通过 etcd 解析外部服务地址的配置。
type DiscoveryConfig struct {
	Enabled     bool   `yaml:"enabled" koanf:"enabled"`
	ServiceName string `yaml:"serviceName" koanf:"servicename"`
}

// EventServiceConfig 定义了外部 "最新事件" 服务的配置。
type EventServiceConfig struct {
	BaseURL        string               `yaml:"baseURL" koanf:"baseurl"`               // 静态地址，启用服务发现时作为兜底
	Timeout        time.Duration        `yaml:"timeout" koanf:"timeout"`               // 请求超时
	Discovery      DiscoveryConfig      `yaml:"discovery" koanf:"discovery"`           // etcd 服务发现
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" koanf:"circuitbreaker"` // 熔断器
}

// NATSConfig 定义了 NATS JetStream 发送端的配置。
type NATSConfig struct {
	URL     string `yaml:"url" koanf:"url"`
	Stream  string `yaml:"stream" koanf:"stream"`
	Subject string `yaml:"subject" koanf:"subject"`
}

// DispatchConfig 选择出站消息的通道。
type DispatchConfig struct {
	Backend string        `yaml:"backend" koanf:"backend"` // "kafka" 或 "nats"
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"` // 单次发送超时
	NATS    NATSConfig    `yaml:"nats" koanf:"nats"`
}

// MetricsConfig 定义了 Prometheus 指标端点。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Address string `yaml:"address" koanf:"address"`
}

// SupervisorConfig 定义了消费循环的监督策略。
type SupervisorConfig struct {
	FailureThreshold float64       `yaml:"failureThreshold" koanf:"failurethreshold"`
	FailureDecay     float64       `yaml:"failureDecay" koanf:"failuredecay"`
	FailureBackoff   time.Duration `yaml:"failureBackoff" koanf:"failurebackoff"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout" koanf:"shutdowntimeout"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App            AppInfo              `yaml:"app" koanf:"app"`
	Logger         LoggerConfig         `yaml:"logger" koanf:"logger"`
	Kafka          KafkaConfig          `yaml:"kafka" koanf:"kafka"`
	Embedding      EmbeddingConfig      `yaml:"embedding" koanf:"embedding"`
	Generation     GenerationConfig     `yaml:"generation" koanf:"generation"`
	Recommendation RecommendationConfig `yaml:"recommendation" koanf:"recommendation"`
	Store          StoreConfig          `yaml:"store" koanf:"store"`
	Databases      DatabaseConfigs      `yaml:"databases" koanf:"databases"`
	EventService   EventServiceConfig   `yaml:"eventService" koanf:"eventservice"`
	Dispatch       DispatchConfig       `yaml:"dispatch" koanf:"dispatch"`
	Metrics        MetricsConfig        `yaml:"metrics" koanf:"metrics"`
	Supervisor     SupervisorConfig     `yaml:"supervisor" koanf:"supervisor"`
}

// Default 返回带有默认值的配置。
func Default() *AppConfig {
	return &AppConfig{
		App:    AppInfo{Name: "recommendation-service", Version: "1.0.0", Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			GroupID: "recommendation-service",
			Topics: TopicsConfig{
				EventsCreated:         "ticketblitz.events.created",
				RecommendationRequest: "ticketblitz.recommendation.request",
				EmailDispatch:         "ticketblitz.email.dispatch",
			},
			DialTimeout: 10 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Dimension: 768,
			TaskType:  "retrieval_document",
			Timeout:   30 * time.Second,
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Recommendation: RecommendationConfig{
			TopK:          3,
			FallbackCount: 3,
			LatestLimit:   5,
			Brand:         "TicketBlitz",
		},
		Store: StoreConfig{Backend: "postgres", Timeout: 5 * time.Second, Migrate: true},
		Databases: DatabaseConfigs{
			Postgres: PostgresConfig{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Hour, IVFLists: 100},
			MySQL:    MySQLConfig{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Hour},
			Milvus:   MilvusConfig{CollectionName: "event_vectors", NList: 128, NProbe: 10},
			Redis: RedisConfig{
				Address:        "localhost:6379",
				Timeout:        2 * time.Second,
				LatestKey:      "events:latest",
				EventKeyPrefix: "event:",
			},
			Etcd: EtcdConfig{DialTimeout: 5 * time.Second},
		},
		EventService: EventServiceConfig{
			BaseURL:   "http://localhost:8081",
			Timeout:   10 * time.Second,
			Discovery: DiscoveryConfig{ServiceName: "event-service"},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				SuccessThreshold: 1,
				Timeout:          30 * time.Second,
			},
		},
		Dispatch: DispatchConfig{
			Backend: "kafka",
			Timeout: 5 * time.Second,
			NATS:    NATSConfig{URL: "nats://localhost:4222", Stream: "EMAIL", Subject: "ticketblitz.email.dispatch"},
		},
		Metrics: MetricsConfig{Enabled: true, Address: ":9102"},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  30 * time.Second,
		},
	}
}

// LoadConfig 从指定路径加载配置。
// 文件中的 ${VAR} 会先用环境变量展开（API 密钥通常放在环境变量里），
// 之后再用 RECO_ 前缀的环境变量覆盖单个配置项。
//
// 参数:
//
//	path: YAML 配置文件的路径，为空时只使用默认值和环境变量。
//
// 返回值:
//
//	*AppConfig: 解析并校验后的应用程序配置。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
		expanded := os.ExpandEnv(string(yamlFile))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides 用 koanf 读取 RECO_ 前缀的环境变量并覆盖到 cfg 上。
func applyEnvOverrides(cfg *AppConfig) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return fmt.Errorf("加载环境变量失败: %w", err)
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	// 列表整体替换，而不是按下标覆盖默认值。
	if k.Exists("kafka.brokers") {
		cfg.Kafka.Brokers = nil
	}
	if k.Exists("databases.etcd.endpoints") {
		cfg.Databases.Etcd.Endpoints = nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("解析环境变量覆盖失败: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Databases.Etcd.Endpoints = splitList(cfg.Databases.Etcd.Endpoints)
	return nil
}

// splitList 把来自环境变量的 "a,b" 形式的单元素列表拆开。
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// envTransformFunc 把 RECO_KAFKA_GROUPID 转换为 kafka.groupid。
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "_", ".")
}

// Validate 校验配置的完整性。
func (c *AppConfig) Validate() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers must not be empty"))
	}
	if c.Kafka.GroupID == "" {
		errs = append(errs, errors.New("kafka.groupID must not be empty"))
	}
	t := c.Kafka.Topics
	if t.EventsCreated == "" || t.RecommendationRequest == "" || t.EmailDispatch == "" {
		errs = append(errs, errors.New("kafka.topics must name all three topics"))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension))
	}
	if len(c.Embedding.Credentials) == 0 {
		errs = append(errs, errors.New("embedding.credentials must contain at least one credential"))
	}
	if c.Recommendation.TopK <= 0 {
		errs = append(errs, fmt.Errorf("recommendation.topK must be positive, got %d", c.Recommendation.TopK))
	}
	if c.Recommendation.FallbackCount <= 0 || c.Recommendation.LatestLimit <= 0 {
		errs = append(errs, errors.New("recommendation.fallbackCount and recommendation.latestLimit must be positive"))
	}
	switch c.Store.Backend {
	case "postgres", "milvus", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	switch c.Dispatch.Backend {
	case "kafka", "nats":
	default:
		errs = append(errs, fmt.Errorf("unknown dispatch.backend %q", c.Dispatch.Backend))
	}
	timeouts := map[string]time.Duration{
		"embedding.timeout":       c.Embedding.Timeout,
		"generation.timeout":      c.Generation.Timeout,
		"store.timeout":           c.Store.Timeout,
		"databases.redis.timeout": c.Databases.Redis.Timeout,
		"eventService.timeout":    c.EventService.Timeout,
		"dispatch.timeout":        c.Dispatch.Timeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}
