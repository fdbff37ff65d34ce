package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
)

func startHealthServer(t *testing.T, engine *demo.Engine, collector *observability.DemoCollector) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(engine, logging.Noop(), collector)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestEngineServiceFollowsDemoMode(t *testing.T) {
	engine, _ := demo.NewManualEngine()
	t.Cleanup(engine.Close)
	client := startHealthServer(t, engine, nil)

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, EngineService))

	engine.ToggleDemoMode(context.Background())
	require.Eventually(t, func() bool {
		return checkStatus(t, client, EngineService) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	engine.ToggleDemoMode(context.Background())
	require.Eventually(t, func() bool {
		return checkStatus(t, client, EngineService) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngineServiceNotServingAfterEngineClose(t *testing.T) {
	engine, _ := demo.NewManualEngine()
	engine.ToggleDemoMode(context.Background())
	client := startHealthServer(t, engine, nil)

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, EngineService))

	engine.Close()
	require.Eventually(t, func() bool {
		return checkStatus(t, client, EngineService) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
}

func TestUnknownServiceIsNotFound(t *testing.T) {
	engine, _ := demo.NewManualEngine()
	t.Cleanup(engine.Close)
	client := startHealthServer(t, engine, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "nope"})
	require.Error(t, err)
}

func TestHealthChecksAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewDemoCollector(reg)
	require.NoError(t, err)

	engine, _ := demo.NewManualEngine()
	t.Cleanup(engine.Close)
	client := startHealthServer(t, engine, collector)

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDMetadataKey, "req-42")
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("grpc.health.v1.Health", "Check", "OK"))
	require.Equal(t, 1.0, got)
}

func TestRequestIDInterceptorPropagatesMetadata(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(logging.Noop())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "abc-123"))

	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			seen = logging.RequestIDFromContext(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	require.Equal(t, "abc-123", seen)
}

func TestRequestIDInterceptorGeneratesID(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(nil)

	var seen string
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			seen = logging.RequestIDFromContext(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
}
