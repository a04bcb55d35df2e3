package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	pb "chat-relay/proto/chatrelay"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"

	grpc3 "github.com/mama165/sdk-go/grpc"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the process lifecycle, so that deferred
// cleanups run before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, _ := internal.CharacterRune(config.CharReplacement)

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if config.DebugInspectPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugInspectPort, endpoint))
		database.StartDebugServer(db, config.DebugInspectPort, endpoint, RecordMapper)
	}

	// 3. Moderation
	var moderator *moderation.Moderator
	if config.EnableCensor {
		data, err := moderation.NewEmbeddedLoader().LoadAll("censored")
		if err != nil {
			return exitRuntime, fmt.Errorf("censored words loading failed: %w", err)
		}
		if moderator, err = moderation.NewModerator(data.Words, charReplacement, logger); err != nil {
			return exitRuntime, fmt.Errorf("moderator init failed: %w", err)
		}
		logger.Info("Censor enabled", "words", len(data.Words), "languages", data.Languages)
	}

	// 4. Delivery core
	tokens := auth.NewTokenManager(config.JWTSecret, config.JWTIssuer)
	users := repositories.NewUserRepository(db)
	rooms := repositories.NewRoomRepository(db, logger)
	messages := repositories.NewMessageRepository(db, logger)
	notifications := repositories.NewNotificationRepository(db, logger)
	registry := runtime.NewRegistry()
	bus := runtime.NewBus(config.BufferSize)
	pagination := services.Pagination{Default: config.DefaultPageSize, Max: config.MaxPageSize}

	presence := services.NewPresenceNotifier(logger, runtime.NewPresence(config.PresenceShards), bus)
	router := services.NewRoomRouter(logger, rooms, registry, presence)
	binder := services.NewSessionBinder(logger, users, registry, presence)
	fanout := services.NewNotificationFanout(logger, rooms, notifications, bus)
	locks := runtime.NewRoomLocks()
	coordinator := services.NewDeliveryCoordinator(logger, router, moderation.NewSanitizer(logger, moderator),
		users, rooms, messages, locks, bus, fanout, config.MaxContentLength, pagination)
	receipts := services.NewReceiptAggregator(logger, router, messages, bus)
	notificationService := services.NewNotificationService(logger, notifications, bus, pagination)
	roomService := services.NewRoomService(logger, users, rooms, messages, notifications, fanout, locks, bus)

	// 5. Supervision
	eventFanout := workers.NewEventFanout(logger, bus.Deliveries(), registry, config.SinkTimeout, config.ConnectionBufferSize)
	sup := workers.NewSupervisor(logger, config.RestartInterval).
		Add(eventFanout, workers.NewHealthMonitoringWorker(logger, registry, eventFanout, config.MetricInterval)).
		Add(workers.NewChannelCapacityWorker(logger, []workers.NamedQueue{{Name: "deliveries", Queue: bus}},
			config.LowCapacityThreshold, config.MetricInterval))
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		logger.Info("Starting supervisor...")
		sup.Run(ctx)
	}()

	errChan := make(chan error, 2)

	// 6. gRPC fallback surface
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(logger),
			auth.AuthInterceptor(tokens),
		))
	pb.RegisterChatRelayServiceServer(s, server.NewChatRelayServer(logger, users, coordinator, receipts,
		notificationService, roomService, services.NewAnalyticsService(logger, messages)))
	go func() {
		logger.Info("Starting gRPC server", "address", grpcAddress, "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Websocket gateway
	if !logger.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		connections, joinedRooms := registry.Counts()
		delivered, dropped := eventFanout.Stats()
		c.JSON(http.StatusOK, gin.H{"connections": connections, "rooms": joinedRooms,
			"delivered": delivered, "dropped": dropped})
	})
	ws.NewGateway(logger, tokens, binder, router, services.NewTypingRelay(router, bus), coordinator, receipts,
		config.ConnectionBufferSize).Register(engine)

	wsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.WSPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting websocket gateway", "address", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-errChan:
		logger.Error("Server failure", "error", err)
		code = exitRuntime
	}

	// 9. Graceful shutdown: stop accepting, drop live sockets, then stop the workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Websocket gateway shutdown", "error", err)
	}
	logger.Info("Closing live connections", "count", registry.CloseAll())
	s.GracefulStop()
	stop()
	sup.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return code, err
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// RecordMapper renders relay records in the debug inspector.
func RecordMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	record, err := repositories.Describe(key, val)
	if err != nil {
		row.Detail = "Error: decode failed"
		return row
	}
	row.Type = record.Kind
	row.Detail = record.Detail
	return row
}
