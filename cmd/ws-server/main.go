package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/api/router"
	"garment-portal-backend/internal/bootstrap"
	"garment-portal-backend/internal/queue"
	"garment-portal-backend/internal/websocket"
)

const prefix = "/api/ws/v1"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := bootstrap.New(ctx, bootstrap.ConfigPath(), "ws-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ws-server: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	hub := websocket.NewHub()
	handler := websocket.NewHandler(websocket.HandlerOptions{
		Hub:             hub,
		Gate:            p.Gate,
		Store:           p.Store,
		Bus:             p.Bus,
		Chat:            p.Config.Chat,
		AllowedOrigins:  p.Config.HTTP.AllowedOrigins,
		Logger:          p.Logger.Named("websocket"),
		AdminChatPrefix: router.AdminChatWebsocketPrefix(prefix),
	})

	// Sockets outlive any request deadline, so no read/write timeouts here.
	server := api.NewAPIServer(api.Options{
		Name:       "ws-server",
		ListenAddr: p.Config.HTTP.WSAddr,
		Queue:      queue.NewFromConfig(p.Config.Queue, p.Logger.Named("queue")),
		Deps: api.Dependencies{
			Gate:  p.Gate,
			Store: p.Store,
			Chat:  p.Config.Chat,
		},
		Logger: p.Logger,
		CORS:   middleware.DefaultCORSConfig(p.Config.HTTP.AllowedOrigins),
	},
		router.UtilsRoutes(prefix),
		router.ConversationWebsocketRoutes(prefix, handler),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		p.Logger.Error("ws server stopped", zap.Error(err))
		p.Close()
		os.Exit(1)
	}
}
