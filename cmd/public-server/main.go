package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/api/router"
	"garment-portal-backend/internal/bootstrap"
	"garment-portal-backend/internal/queue"
)

const prefix = "/api/public/v1"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := bootstrap.New(ctx, bootstrap.ConfigPath(), "public-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "public-server: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	server := api.NewAPIServer(api.Options{
		Name:       "public-server",
		ListenAddr: p.Config.HTTP.PublicAddr,
		Queue:      queue.NewFromConfig(p.Config.Queue, p.Logger.Named("queue")),
		Deps: api.Dependencies{
			Gate:  p.Gate,
			Store: p.Store,
			Chat:  p.Config.Chat,
		},
		Logger:       p.Logger,
		CORS:         middleware.DefaultCORSConfig(p.Config.HTTP.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	},
		router.UtilsRoutes(prefix),
		router.PublicAuthRoutes(prefix),
		router.InquiryRoutes(prefix),
	)

	if err := server.Run(ctx); err != nil {
		p.Logger.Error("public server stopped", zap.Error(err))
		p.Close()
		os.Exit(1)
	}
}
