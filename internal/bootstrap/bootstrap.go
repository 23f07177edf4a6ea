// Package bootstrap wires the shared process dependencies used by every
// server binary and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"garment-portal-backend/internal/config"
	"garment-portal-backend/internal/database"
	"garment-portal-backend/internal/identity"
	internaljwt "garment-portal-backend/internal/jwt"
	"garment-portal-backend/internal/logging"
	"garment-portal-backend/internal/realtime"
	"garment-portal-backend/internal/store"
)

// ConfigFileEnv names an explicit config file path.
const ConfigFileEnv = config.EnvPrefix + "_CONFIG_FILE"

type Platform struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *database.Database
	Bus    *realtime.RedisBus
	Store  *store.Dynamo
	Gate   *identity.Gate

	authRedis *redis.Client
}

// ConfigPath returns the path from ConfigFileEnv, or "" for the default lookup.
func ConfigPath() string {
	return os.Getenv(ConfigFileEnv)
}

// New loads configuration and builds the logger, DynamoDB client, chat bus,
// store and identity gate.
func New(ctx context.Context, configPath, name string) (*Platform, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(zap.String("service", name))

	db, err := database.NewDatabase(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	admins, err := identity.NewAdminPolicy(cfg.Auth.AdminEmails)
	if err != nil {
		return nil, fmt.Errorf("init admin policy: %w", err)
	}

	bus := realtime.NewChatRedisBus(cfg.Redis, logging.Named(logger, "bus"))
	st := store.NewDynamo(db, bus, logging.Named(logger, "store"))
	authRedis := internaljwt.NewAuthRedisClient(cfg.Redis)

	gate := identity.NewGate(identity.Options{
		Users:    identity.NewDynamoUserRepository(db),
		Profiles: st,
		Tokens:   internaljwt.NewManager(cfg.Auth, authRedis),
		Admins:   admins,
		Bus:      bus,
		Logger:   logging.Named(logger, "identity"),
	})

	return &Platform{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Bus:       bus,
		Store:     st,
		Gate:      gate,
		authRedis: authRedis,
	}, nil
}

// Close releases the Redis connections and flushes the logger.
func (p *Platform) Close() {
	if err := p.Bus.Close(); err != nil {
		p.Logger.Warn("close chat redis", zap.Error(err))
	}
	if err := p.authRedis.Close(); err != nil {
		p.Logger.Warn("close auth redis", zap.Error(err))
	}
	_ = p.Logger.Sync()
}
