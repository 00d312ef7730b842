package config

import (
	"time"
)

type Config interface {
	GatewayConfig
	SessionConfig
	LogConfig
	Validate() error
}

type GatewayConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetScope() string
	GetEnvironment() string
	GetGoID() string
	GetBaseURL() string
	GetRequestTimeout() (time.Duration, error)
}

type SessionConfig interface {
	GetSessionDir() string
	GetSessionName() string
	GetRedisAddr() string
	GetSealKey() string
}

type LogConfig interface {
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
}

// New reads configuration from the environment only.
func New() Config {
	return mainConfig{}
}

// Load reads configuration from the environment, falling back to the YAML
// file at path for anything the environment leaves unset. An empty path or a
// missing file is not an error.
func Load(path string) (Config, error) {
	file, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars{file: file}}, nil
}
