package supervisor

import (
	"context"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/pkg/logger"

	"github.com/thejerf/suture/v4"
)

// Tree 是服务的监督树：consumers 层运行两个消费循环，infra 层运行指标等辅助服务。
// 两层互相隔离，一个循环反复崩溃不会影响另一个。
type Tree struct {
	root      *suture.Supervisor
	consumers *suture.Supervisor
	infra     *suture.Supervisor
	log       *logger.Logger
}

// New 按配置创建监督树，零值使用 suture 的默认策略。
func New(name string, cfg config.SupervisorConfig, log *logger.Logger) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	spec := suture.Spec{
		EventHook:        EventHook(log),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := spec
	childSpec.EventHook = nil

	root := suture.New(name, spec)
	consumers := suture.New("consumers", childSpec)
	infra := suture.New("infra", childSpec)
	root.Add(consumers)
	root.Add(infra)

	return &Tree{root: root, consumers: consumers, infra: infra, log: log}
}

// AddConsumer 把一个消费循环加入 consumers 层。
func (t *Tree) AddConsumer(svc suture.Service) suture.ServiceToken {
	return t.consumers.Add(svc)
}

// AddInfra 把辅助服务（例如指标 HTTP 服务）加入 infra 层。
func (t *Tree) AddInfra(svc suture.Service) suture.ServiceToken {
	return t.infra.Add(svc)
}

// Serve 阻塞运行整棵树，直到 ctx 被取消。
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground 在后台运行整棵树。
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport 返回关闭超时后仍未停止的服务。
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// EventHook 把 suture 事件写入 logrus。
func EventHook(log *logger.Logger) suture.EventHook {
	return func(e suture.Event) {
		l := log.WithPayload(e.Map())
		switch e.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeStopTimeout:
			l.Error(e.String())
		case suture.EventTypeServiceTerminate, suture.EventTypeBackoff:
			l.Warn(e.String())
		default:
			l.Info(e.String())
		}
	}
}
