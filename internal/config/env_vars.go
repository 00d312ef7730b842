package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/jrsteele09/go-gopay-client/internal/errors"
)

const (
	clientIDEnvVar       = "GOPAY_CLIENT_ID"
	clientSecretEnvVar   = "GOPAY_CLIENT_SECRET"
	scopeEnvVar          = "GOPAY_SCOPE"
	environmentEnvVar    = "GOPAY_ENV"
	goIDEnvVar           = "GOPAY_GOID"
	baseURLEnvVar        = "GOPAY_BASE_URL"
	requestTimeoutEnvVar = "GOPAY_REQUEST_TIMEOUT"
	sessionDirEnvVar     = "GOPAY_SESSION_DIR"
	sessionNameEnvVar    = "GOPAY_SESSION_NAME"
	redisAddrEnvVar      = "GOPAY_REDIS_ADDR"
	sealKeyEnvVar        = "GOPAY_SESSION_KEY"
	logLevelEnvVar       = "LOG_LEVEL"

	defaultRequestTimeout = 30 * time.Second
)

type EnvVars struct {
	file fileValues
}

var _ GatewayConfig = EnvVars{}
var _ SessionConfig = EnvVars{}
var _ LogConfig = EnvVars{}

func (e EnvVars) GetClientID() string {
	return GetEnv(clientIDEnvVar, e.file.ClientID)
}

func (e EnvVars) GetClientSecret() string {
	return GetEnv(clientSecretEnvVar, e.file.ClientSecret)
}

// GetScope returns an empty string when unset; the client then asks for
// payment-all.
func (e EnvVars) GetScope() string {
	return GetEnv(scopeEnvVar, e.file.Scope)
}

func (e EnvVars) GetEnvironment() string {
	return GetEnv(environmentEnvVar, orDefault(e.file.Environment, "sandbox"))
}

func (e EnvVars) GetGoID() string {
	return GetEnv(goIDEnvVar, e.file.GoID)
}

// GetBaseURL overrides the environment's gateway URL when set.
func (e EnvVars) GetBaseURL() string {
	return GetEnv(baseURLEnvVar, e.file.BaseURL)
}

// GetRequestTimeout is read in whole seconds.
func (e EnvVars) GetRequestTimeout() (time.Duration, error) {
	fallback := ""
	if e.file.RequestTimeoutSeconds != 0 {
		fallback = strconv.Itoa(e.file.RequestTimeoutSeconds)
	}
	raw := GetEnv(requestTimeoutEnvVar, fallback)
	if raw == "" {
		return defaultRequestTimeout, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, errors.Wrapf(errors.ErrInvalidTimeout, "%s=%q", requestTimeoutEnvVar, raw)
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetSessionDir returns an empty string when unset; callers use the file
// store's default directory.
func (e EnvVars) GetSessionDir() string {
	return GetEnv(sessionDirEnvVar, e.file.Session.Dir)
}

func (e EnvVars) GetSessionName() string {
	return GetEnv(sessionNameEnvVar, orDefault(e.file.Session.Name, "default"))
}

// GetRedisAddr selects the redis session store when set.
func (e EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrEnvVar, e.file.Session.RedisAddr)
}

// GetSealKey is the hex encoded key used to encrypt stored sessions.
func (e EnvVars) GetSealKey() string {
	return GetEnv(sealKeyEnvVar, e.file.Session.SealKey)
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, orDefault(e.file.LogLevel, "info"))
}

func (e EnvVars) Validate() error {
	if e.GetClientID() == "" {
		return errors.ErrMissingClientID
	}
	if e.GetClientSecret() == "" {
		return errors.ErrMissingClientSecret
	}
	if _, err := e.GetRequestTimeout(); err != nil {
		return err
	}
	if key := e.GetSealKey(); key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil || len(raw) != 32 {
			return errors.ErrInvalidSealKey
		}
	}
	return nil
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
