package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/domain/event"
	grpcclient "chat-relay/infrastructure/grpc/client"
	"chat-relay/infrastructure/ws"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromLevel(slog.LevelWarn)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newPrinter(config.Colours)
	// The read loop starts before the sender exists
	var senderRef atomic.Pointer[client.Sender]

	fallback, err := grpcclient.NewChatRelayClient(config.GRPCAddr, config.Token)
	if err != nil {
		return err
	}
	defer func() { _ = fallback.Close() }()

	conn, err := client.DialWS(ctx, logger, config.WSURL, config.Token, func(frame ws.Frame) {
		if frame.Type == string(event.MessageCreatedType) {
			var created event.MessageCreated
			if sender := senderRef.Load(); sender != nil && json.Unmarshal(frame.Payload, &created) == nil {
				sender.Reconcile(created.ClientID, string(created.ID))
			}
		}
		out.event(frame)
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	sender := client.NewSender(logger, conn, client.NewGRPCTransport(fallback), config.AckTimeout)
	senderRef.Store(sender)

	if _, err = conn.Request(ctx, event.JoinRoomType, event.JoinRoom{RoomID: domain.RoomID(config.Room)}); err != nil {
		return fmt.Errorf("join %s: %w", config.Room, err)
	}
	out.info("Joined %s. Type a message, /retry to resend failed messages, /quit to leave.", config.Room)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch line = strings.TrimSpace(line); line {
			case "":
			case "/quit":
				return nil
			case "/retry":
				for _, failed := range sender.Failed() {
					retried, err := sender.Retry(ctx, failed.CorrelationID)
					if err != nil {
						out.failure("%v", err)
						continue
					}
					out.status(retried)
				}
			default:
				out.status(sender.Send(ctx, config.Room, line))
			}
		}
	}
}
