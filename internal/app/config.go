package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config is everything the API reads from its environment.
type Config struct {
	StoreBackend  string
	KVTable       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ParamPrefix   string
	PathPrefix    string
	TokenTTL      time.Duration
	LogLevel      string
}

// LoadConfig reads Config through getenv, normally os.Getenv.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := Config{
		StoreBackend:  strings.ToLower(envString(getenv, "STORE_BACKEND", BackendDynamoDB)),
		KVTable:       getenv("KV_TABLE"),
		RedisAddr:     envString(getenv, "REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		RedisDB:       envInt(getenv, "REDIS_DB", 0),
		ParamPrefix:   getenv("PARAM_PREFIX"),
		PathPrefix:    getenv("API_PATH_PREFIX"),
		TokenTTL:      time.Duration(envInt(getenv, "ADMIN_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		LogLevel:      envString(getenv, "LOG_LEVEL", "INFO"),
	}

	if cfg.ParamPrefix == "" {
		return Config{}, missing("PARAM_PREFIX")
	}
	switch cfg.StoreBackend {
	case BackendDynamoDB:
		if cfg.KVTable == "" {
			return Config{}, missing("KV_TABLE")
		}
	case BackendRedis:
	default:
		return Config{}, fmt.Errorf("app: unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("app: ADMIN_TOKEN_TTL_MINUTES must be positive")
	}
	return cfg, nil
}

func missing(key string) error {
	return fmt.Errorf("app: required environment variable %s is not set", key)
}

func envString(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
