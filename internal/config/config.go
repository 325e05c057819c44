package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"ecommerce-stack/internal/logging"
	"ecommerce-stack/internal/service"
)

// Keys double as environment variable names once upper-cased.
const (
	KeyPort        = "port"
	KeyLogLevel    = "log_level"
	KeyMetricsAddr = "metrics_addr"
	KeyBasePath    = "base_path"
	KeyLambda      = "lambda"

	keyRuntimeAPI = "lambda_runtime_api"
)

// Settings is the resolved runtime configuration of one service binary.
type Settings struct {
	Service     service.Config
	Port        int
	LogLevel    string
	MetricsAddr string
	BasePath    string
	// Lambda selects the adapter instead of a listening HTTP server.
	Lambda bool
}

// New returns a viper instance seeded with svc's defaults and reading the
// environment.
func New(svc service.Config) *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, svc.DefaultPort)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyBasePath, svc.BasePath)
	v.SetDefault(KeyLambda, false)
	v.AutomaticEnv()
	_ = v.BindEnv(keyRuntimeAPI, "AWS_LAMBDA_RUNTIME_API")
	return v
}

// ReadDotEnv merges KEY=VALUE pairs from path. A missing file is not an error.
func ReadDotEnv(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Load resolves Settings for svc from v.
func Load(v *viper.Viper, svc service.Config) (Settings, error) {
	s := Settings{
		Service:     svc,
		Port:        v.GetInt(KeyPort),
		LogLevel:    v.GetString(KeyLogLevel),
		MetricsAddr: strings.TrimSpace(v.GetString(KeyMetricsAddr)),
		BasePath:    strings.TrimSpace(v.GetString(KeyBasePath)),
		Lambda:      v.GetBool(KeyLambda) || v.GetString(keyRuntimeAPI) != "",
	}
	if s.Port <= 0 || s.Port > 65535 {
		return Settings{}, fmt.Errorf("invalid port %d", s.Port)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return Settings{}, err
	}
	if s.BasePath != "" && !strings.HasPrefix(s.BasePath, "/") {
		return Settings{}, fmt.Errorf("base path %q must start with /", s.BasePath)
	}
	return s, nil
}

// Addr is the standalone listen address.
func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
