package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/spanner"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/journal"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/queries"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/queries/get_draft"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/repo"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/session"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/usecases/save_draft"
	"github.com/murkotick/draft-autosave-service/internal/config"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
	committer "github.com/murkotick/draft-autosave-service/internal/pkg/committer"
	"github.com/murkotick/draft-autosave-service/internal/pkg/telemetry"
	grpcdraft "github.com/murkotick/draft-autosave-service/internal/transport/grpc/draft"
	draftv1 "github.com/murkotick/draft-autosave-service/proto/draft/v1"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM.
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Info("shutdown signal received")
		cancel()
	}()

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
		Enabled:        cfg.OTelEnabled,
	}, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	policies, err := cfg.Policies()
	if err != nil {
		return fmt.Errorf("field policies: %w", err)
	}

	client, err := spanner.NewClient(ctx, cfg.SpannerDatabase)
	if err != nil {
		return fmt.Errorf("spanner.NewClient: %w", err)
	}
	defer client.Close()

	clk := clock.RealClock{}
	draftRepo := repo.NewDraftRepo()
	outboxRepo := repo.NewOutboxRepo()
	cm := committer.NewAdapter(client)
	readModel := queries.NewSpannerReadModel(client)
	saver := save_draft.NewInteractor(draftRepo, outboxRepo, cm, clk)

	jr, closer, err := openJournal(cfg, clk)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	base := autosave.Options{
		Policies:    policies,
		Clock:       clk,
		Journal:     jr,
		Logger:      logger,
		Meter:       tel.Meter(),
		Tracer:      tel.Tracer(),
		SaveTimeout: cfg.SaveTimeout,
		Retry:       cfg.Retry(),
		SaveRate:    cfg.SaveLimit(),
		SaveBurst:   cfg.SaveBurst,
	}
	registry := session.NewRegistry(base, func(draftID string) autosave.PersistFunc {
		return saver.PersistFor(draftID)
	}, readModel)

	h := grpcdraft.NewHandler(registry, get_draft.NewHandler(readModel))

	// gRPC server
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	draftv1.RegisterDraftServiceServer(srv, h)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr, "journal", cfg.JournalDriver, "policies", len(policies.Fields()))
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		srv.Stop()
	}

	// Pending edits are flushed before the Spanner client closes.
	flushCtx, done := context.WithTimeout(context.Background(), cfg.SaveTimeout+5*time.Second)
	defer done()
	if err := registry.Shutdown(flushCtx); err != nil {
		logger.Error("flush on shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func openJournal(cfg *config.Config, clk clock.Clock) (contracts.Journal, io.Closer, error) {
	switch cfg.JournalDriver {
	case config.JournalSQLite:
		j, err := journal.OpenSQLite(cfg.SQLitePath, clk)
		if err != nil {
			return nil, nil, err
		}
		return j, j, nil
	case config.JournalRedis:
		j := journal.NewRedis(journal.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.JournalTTL)
		return j, j, nil
	}
	return nil, nil, nil
}
