// Package config loads process configuration from defaults, an optional YAML file,
// a .env file and PORTAL_* environment variables.
package config

import (
	"errors"
	"time"
)

var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	AWS   AWSConfig   `mapstructure:"aws"`
	Redis RedisConfig `mapstructure:"redis"`
	Auth  AuthConfig  `mapstructure:"auth"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	Chat  ChatConfig  `mapstructure:"chat"`
	Queue QueueConfig `mapstructure:"queue"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region" validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `mapstructure:"session_token"`
	DynamoEndpoint  string `mapstructure:"dynamodb_endpoint" validate:"omitempty,url"`
}

type RedisConfig struct {
	AuthAddr     string `mapstructure:"auth_addr" validate:"required,hostname_port"`
	AuthPassword string `mapstructure:"auth_password"`
	ChatAddr     string `mapstructure:"chat_addr" validate:"required,hostname_port"`
	ChatPassword string `mapstructure:"chat_password"`
}

type AuthConfig struct {
	UserSecret      string        `mapstructure:"user_secret" validate:"required,min=16"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl" validate:"gt=0"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl" validate:"gtfield=AccessTokenTTL"`
	// AdminEmails is matched byte-for-byte against the signed-in email, which
	// sign-in trims and lowercases, so entries must already be in that form.
	AdminEmails []string `mapstructure:"admin_emails" validate:"min=1,dive,email,lowercase"`
}

type HTTPConfig struct {
	PublicAddr     string   `mapstructure:"public_addr" validate:"required"`
	ClientAddr     string   `mapstructure:"client_addr" validate:"required"`
	WSAddr         string   `mapstructure:"ws_addr" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1"`
}

type ChatConfig struct {
	DefaultSubject string `mapstructure:"default_subject" validate:"required"`
	WidgetHistory  int    `mapstructure:"widget_history" validate:"gt=0"`
}

type QueueConfig struct {
	Size    int `mapstructure:"size" validate:"gt=0"`
	Workers int `mapstructure:"workers" validate:"gt=0"`
}
