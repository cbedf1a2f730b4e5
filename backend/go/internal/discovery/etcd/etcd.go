package etcd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"TicketBlitz_Recommendation/backend/go/internal/config"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// ErrNoInstances is returned when no instance of a service is registered.
var ErrNoInstances = errors.New("no registered instances")

// KV is the subset of the etcd client used for discovery.
type KV interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
}

// ServiceDiscovery resolves service addresses registered under "/<service>/".
type ServiceDiscovery struct {
	kv     KV
	closer func() error
}

// NewServiceDiscovery creates a new ServiceDiscovery.
func NewServiceDiscovery(cfg config.EtcdConfig) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &ServiceDiscovery{kv: cli, closer: cli.Close}, nil
}

// NewWithKV wraps an existing KV, for example an already connected client.
func NewWithKV(kv KV) *ServiceDiscovery {
	return &ServiceDiscovery{kv: kv}
}

// Discover lists every address registered for the service.
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	resp, err := s.kv.Get(ctx, "/"+serviceName+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", serviceName, err)
	}

	var addrs []string
	for _, ev := range resp.Kvs {
		addrs = append(addrs, string(ev.Value))
	}
	return addrs, nil
}

// Resolve returns a base URL for the first registered instance of the service.
func (s *ServiceDiscovery) Resolve(ctx context.Context, serviceName string) (string, error) {
	addrs, err := s.Discover(ctx, serviceName)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoInstances, serviceName)
	}
	addr := addrs[0]
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/"), nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
