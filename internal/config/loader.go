package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "CHATTY"
	envConfigDefaultPath = "CHATTY_CONFIG_DEFAULT_PATH"
	clientConfigName     = "chatty.yaml"
	serverConfigName     = "chatty-server.yaml"
)

// LoadClient builds client configuration from defaults, optional config file and env vars,
// and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func LoadClient(logger *zerolog.Logger, explicitPath string) (Client, string, error) {
	cfg := DefaultClient()

	v := newViper()
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("nickname", cfg.Nickname)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("dial_timeout", cfg.DialTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	path := resolveConfigPath(explicitPath, clientConfigName)
	if err := read(logger, v, path, cfg); err != nil {
		return cfg, path, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, path, nil
}

// LoadServer is the server counterpart of LoadClient.
func LoadServer(logger *zerolog.Logger, explicitPath string) (Server, string, error) {
	cfg := DefaultServer()

	v := newViper()
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("room_id_length", cfg.RoomIDLength)
	v.SetDefault("bcrypt_cost", cfg.BcryptCost)
	v.SetDefault("rate_limit", cfg.RateLimit)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	path := resolveConfigPath(explicitPath, serverConfigName)
	if err := read(logger, v, path, cfg); err != nil {
		return cfg, path, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// read loads path into v, writing defaults there first when the file does not exist.
func read(logger *zerolog.Logger, v *viper.Viper, path string, defaults any) error {
	v.SetConfigFile(path)

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}

	if writeErr := writeDefaultConfig(path, defaults); writeErr != nil {
		if logger != nil {
			logger.Warn().Err(writeErr).Str("path", path).Msg("failed to write default config")
		}
		return nil
	}
	if logger != nil {
		logger.Info().Str("path", path).Msg("created default config")
	}
	// try reading again in case it was just written
	if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
		logger.Warn().Err(readErr).Str("path", path).Msg("failed to read config after writing default")
	}
	return nil
}

func resolveConfigPath(explicitPath, name string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, name)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return name
	}
	return filepath.Join(cwd, name)
}

func writeDefaultConfig(path string, cfg any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
