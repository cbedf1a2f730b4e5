package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// NewReader 为指定主题和消费组创建一个 Reader。
// 偏移量由调用方在处理完消息后显式提交（CommitMessages）。
func NewReader(cfg config.KafkaConfig, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxAttempts:    10,
		CommitInterval: 0, // 同步提交
		StartOffset:    kafka.FirstOffset,
		Dialer: &kafka.Dialer{
			Timeout: cfg.DialTimeout,
		},
	})
}

// NewWriter 创建一个写入指定主题的 Writer。相同 key 的消息落在同一分区。
func NewWriter(cfg config.KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: cfg.AutoCreate,
	}
}

// EnsureTopics 连接到第一个 broker 并创建缺失的主题。
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("未配置 Kafka brokers")
	}
	dialer := &kafka.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	// 主题只能在 controller 上创建
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("无法获取 Kafka controller: %w", err)
	}
	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("连接 Kafka controller 失败: %w", err)
	}
	defer ctrlConn.Close()

	partitions, err := ctrlConn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existing := make(map[string]struct{})
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	var toCreate []kafka.TopicConfig
	for _, topic := range []string{cfg.Topics.EventsCreated, cfg.Topics.RecommendationRequest, cfg.Topics.EmailDispatch} {
		if _, ok := existing[topic]; ok {
			continue
		}
		logrus.WithField("topic", topic).Info("主题不存在，准备创建")
		toCreate = append(toCreate, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	if len(toCreate) == 0 {
		return nil
	}
	if err := ctrlConn.CreateTopics(toCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	logrus.Infof("成功创建 %d 个 Kafka 主题", len(toCreate))
	return nil
}
