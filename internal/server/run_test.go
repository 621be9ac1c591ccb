package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danmuck/edgexchange/internal/hostaddr"
	"github.com/danmuck/edgexchange/internal/testutil/testlog"
	"github.com/danmuck/edgexchange/internal/testutil/tlstest"
	"github.com/rs/zerolog"
)

func TestRunServesTLSAndStopsOnCancel(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, "edgexchange-test-ca")
	certPath, keyPath := ca.IssueServerCert(t, dir, "edgectl")

	port := hostaddr.AvailablePort()
	if port == 0 {
		t.Fatalf("no free port")
	}
	addr := hostaddr.HostString("127.0.0.1", port)
	s, err := New(Config{Addr: addr, TLSCert: certPath, TLSKey: keyPath}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	client := &http.Client{
		Timeout:   time.Second,
		Transport: &http.Transport{TLSClientConfig: ca.ClientConfig()},
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := client.Get("https://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("unexpected status %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	testlog.Start(t)

	s, err := New(Config{Addr: "127.0.0.1:-1"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected listen error")
	}
}
