package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/incident-demo/internal/config"
	"github.com/signalsfoundry/incident-demo/internal/health"
	"github.com/signalsfoundry/incident-demo/internal/logging"
)

func TestDemoServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Config{
		DefaultRole:   "dispatcher",
		PlaybackSpeed: 2,
		AutoEnable:    true,
		Log:           config.LogConfig{Level: "warn", Format: "text"},
	}
	log := logging.New(cfg.Logging())

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(runCtx, cfg, log, listeners{http: httpLis, grpc: grpcLis})
	}()

	base := "http://" + httpLis.Addr().String()
	var body struct {
		Status      string `json:"status"`
		DemoEnabled bool   `json:"demoEnabled"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/api/v1/healthz")
		if err == nil {
			decodeErr := json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if decodeErr != nil {
				t.Fatalf("decode healthz: %v", decodeErr)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET /healthz: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if body.Status != "ok" || !body.DemoEnabled {
		t.Fatalf("healthz = %+v, want ok with demo enabled", body)
	}

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	var status healthpb.HealthCheckResponse_ServingStatus
	for {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: health.EngineService})
		if err == nil {
			status = resp.GetStatus()
			if status == healthpb.HealthCheckResponse_SERVING {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("engine health = %v (err %v), want SERVING", status, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	stop()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run() did not return after cancellation")
	}
}

func TestRunRejectsBadAutoResetSpec(t *testing.T) {
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer httpLis.Close()
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer grpcLis.Close()

	cfg := config.Config{DefaultRole: "admin", PlaybackSpeed: 1, AutoReset: "every tuesday"}
	err = run(context.Background(), cfg, logging.Noop(), listeners{http: httpLis, grpc: grpcLis})
	if err == nil {
		t.Fatalf("run() error = nil, want schedule error")
	}
}

func TestRootCommandRegistersFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"config", "env-file", "http-addr", "grpc-addr", "metrics-addr", "role", "speed", "auto-enable", "auto-reset", "log-level", "tracing"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("flag %q not registered", name)
		}
	}
}
