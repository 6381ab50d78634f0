package lifecycle

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestHTTPService_StartAndStop(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	server := &http.Server{Addr: addr, Handler: http.NewServeMux()}
	svc := NewHTTPService("test-http", server)

	if svc.Name() != "test-http" {
		t.Errorf("expected name 'test-http', got %q", svc.Name())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	time.Sleep(150 * time.Millisecond)

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("expected server to be listening, got: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected Start to return nil after context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestHTTPService_Health_AlwaysNil(t *testing.T) {
	svc := NewHTTPService("test-http", &http.Server{})
	if err := svc.Health(); err != nil {
		t.Errorf("expected nil health, got %v", err)
	}
}
