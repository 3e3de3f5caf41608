package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/nimburion/docmanager/pkg/observability/logger"
)

func TestServerStartAndShutdown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := NewServer(Config{ReadTimeout: 5 * time.Second, ShutdownTimeout: time.Second}, mux, logger.Nop())
	if srv.Addr() != "" {
		t.Fatal("address must be empty before start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server shutdown timed out")
	}
}

func TestServerStart_PortInUse(t *testing.T) {
	first := NewServer(Config{}, http.NotFoundHandler(), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = first.Start(ctx) }()
	<-first.Ready()

	_, port, _ := splitHostPort(t, first.Addr())
	second := NewServer(Config{Port: port}, http.NotFoundHandler(), logger.Nop())
	if err := second.Start(ctx); err == nil {
		t.Error("expected error for a port in use")
	}
}

func TestServerShutdown_BeforeStart(t *testing.T) {
	if err := NewServer(Config{}, http.NotFoundHandler(), logger.Nop()).Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown before start must be a no-op, got %v", err)
	}
}
