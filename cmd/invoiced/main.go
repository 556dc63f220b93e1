package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/invoice-extract/internal/app"
	"github.com/joseph-ayodele/invoice-extract/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, app.Options{EnvFile: os.Getenv("ENV_FILE"), JSONLogs: true})
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	logger := a.Logger

	addr := a.Config.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}

	go a.Sweeper.Run(ctx)

	grpcServer := grpc.NewServer(grpc.MaxRecvMsgSize(server.MaxDocumentBytes + 1<<20))
	server.RegisterExtractionServer(grpcServer, server.NewExtractionService(a.Pipeline, a.Repo, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	// Set the service as serving (empty string means overall server health)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	if _, err := a.Remote.Ping(ctx); err != nil {
		logger.Warn("AI collaborator not reachable; fallback will degrade", "error", err)
	}
	reflection.Register(grpcServer)

	logger.Info("invoiced listening", "addr", addr, "store", a.DB != nil)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()
}
