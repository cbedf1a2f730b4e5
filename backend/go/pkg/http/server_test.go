package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TicketBlitz_Recommendation/backend/go/internal/config"
	"TicketBlitz_Recommendation/backend/go/pkg/circuitbreaker"
)

func TestNewServer_WithAddress(t *testing.T) {
	addr := ":9999"
	srv := NewServer(WithAddress(addr))

	if srv.Addr() != addr {
		t.Errorf("Expected server address to be %s, but got %s", addr, srv.Addr())
	}
	if NewServer().Addr() != ":8080" {
		t.Errorf("Expected default address :8080")
	}
}

func TestServer_Handle(t *testing.T) {
	srv := NewServer()
	srv.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	testServer := httptest.NewServer(srv.httpServer.Handler)
	defer testServer.Close()

	resp, err := http.Get(testServer.URL + "/metrics")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("Expected body ok, got %q", string(body))
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv := NewServer(WithAddress("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var hits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer backend.Close()

	client := NewClient(config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	}, time.Second)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, backend.URL, nil)
		if _, err := client.Do(req); err == nil {
			t.Fatalf("Expected error on request %d", i+1)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, backend.URL, nil)
	_, err := client.Do(req)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Expected backend to be hit twice, got %d", hits)
	}
	if client.BreakerState() != circuitbreaker.Open {
		t.Errorf("Expected breaker to be open")
	}
}

func TestClient_WithoutBreakerPassesThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	client := NewClient(config.CircuitBreakerConfig{}, time.Second)
	req, _ := http.NewRequest(http.MethodGet, backend.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}
