package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "PORTAL"

// Load resolves configuration in order of increasing precedence:
//  1. built-in defaults
//  2. the YAML file at path (or ./config.yaml when path is empty)
//  3. variables from .env, then PORTAL_* environment variables
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %v", ErrConfiguration, err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path == "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("%w: read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindEnv registers keys that have no default so AutomaticEnv can see them
// during Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"log.file",
		"log.compress",
		"aws.access_key_id",
		"aws.secret_access_key",
		"aws.session_token",
		"aws.dynamodb_endpoint",
		"redis.auth_password",
		"redis.chat_password",
		"auth.user_secret",
		"auth.admin_emails",
	} {
		_ = v.BindEnv(key)
	}
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}
