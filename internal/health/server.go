// Package health serves the standard gRPC health protocol for the demo
// engine, reporting the engine service as SERVING only while demo mode is
// enabled.
package health

import (
	"context"
	"net"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
)

// EngineService is the health service name tracking demo mode.
const EngineService = "incident-demo.Engine"

// Server is a gRPC server exposing grpc.health.v1 for one engine.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	engine *demo.Engine
	log    logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	watchWG sync.WaitGroup
}

// NewServer builds the gRPC server. collector may be nil.
func NewServer(engine *demo.Engine, log logging.Logger, collector *observability.DemoCollector) *Server {
	if log == nil {
		log = logging.Noop()
	}
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if collector != nil {
		interceptors = append(interceptors, collector.UnaryServerInterceptor())
	}

	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(EngineService, servingStatus(engine.Snapshot().Enabled))

	return &Server{
		grpc:   gs,
		health: hs,
		engine: engine,
		log:    log,
	}
}

// Serve starts tracking the engine and serves on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.startWatch()
	s.log.Info(context.Background(), "starting gRPC health server", logging.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING, stops tracking the engine and
// gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.watchWG.Wait()
	s.grpc.GracefulStop()
}

func (s *Server) startWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	snapshots, unsubscribe := s.engine.Subscribe()
	s.watchWG.Add(1)
	go func() {
		defer s.watchWG.Done()
		defer unsubscribe()
		s.watch(ctx, snapshots)
	}()
}

func (s *Server) watch(ctx context.Context, snapshots <-chan demo.Snapshot) {
	var (
		last  healthpb.HealthCheckResponse_ServingStatus
		known bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				s.health.SetServingStatus(EngineService, healthpb.HealthCheckResponse_NOT_SERVING)
				return
			}
			st := servingStatus(snap.Enabled)
			if known && st == last {
				continue
			}
			last, known = st, true
			s.health.SetServingStatus(EngineService, st)
			s.log.Debug(ctx, "engine health updated",
				logging.String("service", EngineService),
				logging.String("status", st.String()),
			)
		}
	}
}

func servingStatus(enabled bool) healthpb.HealthCheckResponse_ServingStatus {
	if enabled {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
