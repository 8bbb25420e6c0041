package server

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "0.0.0.0" {
		t.Fatalf("Host = %q; want %q", cfg.Host, "0.0.0.0")
	}
	if cfg.Port != 8808 {
		t.Fatalf("Port = %d; want %d", cfg.Port, 8808)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("ReadTimeout = %v; want %v", cfg.ReadTimeout, 15*time.Second)
	}
	if cfg.WriteTimeout != 0 {
		t.Fatalf("WriteTimeout = %v; want 0 (SSE holds responses open)", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("IdleTimeout = %v; want %v", cfg.IdleTimeout, 60*time.Second)
	}
}

func TestNewServer_ConfiguresAddressAndHandler(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 18808, ReadTimeout: time.Second, WriteTimeout: 2 * time.Second, IdleTimeout: 3 * time.Second}
	s := NewServer(http.NewServeMux(), cfg)

	if s == nil {
		t.Fatal("NewServer() returned nil")
	}
	if s.http == nil {
		t.Fatal("server.http should not be nil")
	}
	if s.http.Addr != "127.0.0.1:18808" {
		t.Fatalf("Addr = %q; want %q", s.http.Addr, "127.0.0.1:18808")
	}
	if s.Addr() != "127.0.0.1:18808" {
		t.Fatalf("Addr() = %q; want %q", s.Addr(), "127.0.0.1:18808")
	}
	if s.http.Handler == nil {
		t.Fatal("Handler should not be nil")
	}
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestShutdown_ClosesOwnedResources(t *testing.T) {
	counter := &closeCounter{}
	s := NewServer(http.NewServeMux(), DefaultConfig(), counter)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if counter.closed != 1 {
		t.Fatalf("closed = %d; want 1", counter.closed)
	}
}
