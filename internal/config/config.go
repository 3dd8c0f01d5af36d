package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"

	StockStatic = "static"
	StockSQLite = "sqlite"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort int

	StoreBackend   string
	MemoryCapacity int
	RedisAddr      string
	RedisPassword  string
	RedisSlotTTL   time.Duration
	MongoURI       string
	MongoDBName    string

	// MongoSlotRetention expires untouched slots; zero keeps them forever.
	MongoSlotRetention time.Duration

	StockBackend         string
	StockSeedFile        string
	StockDBPath          string
	StockRefreshInterval time.Duration
	StockRefreshJitter   time.Duration

	MergeGuestOnSignIn bool
	SessionIdleTimeout time.Duration
	KafkaBrokers       []string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads the environment, falling back to defaults for unset or
// unparsable values. Only unknown backend names are rejected.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		MemoryCapacity: getEnvInt("STORE_MEMORY_CAPACITY", 0),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisSlotTTL:   getEnvDuration("REDIS_SLOT_TTL", 0),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "storefront"),

		MongoSlotRetention: getEnvDuration("MONGO_SLOT_RETENTION", 0),

		StockBackend:         strings.ToLower(getEnv("STOCK_BACKEND", StockStatic)),
		StockSeedFile:        getEnv("STOCK_SEED_FILE", ""),
		StockDBPath:          getEnv("STOCK_DB_PATH", "./inventory.db"),
		StockRefreshInterval: getEnvDuration("STOCK_REFRESH_INTERVAL", 30*time.Second),
		StockRefreshJitter:   getEnvDuration("STOCK_REFRESH_JITTER", 5*time.Second),

		MergeGuestOnSignIn: getEnvBool("MERGE_GUEST_ON_SIGN_IN", false),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		KafkaBrokers:       getEnvList("KAFKA_BROKERS"),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendMongo:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	switch cfg.StockBackend {
	case StockStatic, StockSQLite:
	default:
		return Config{}, fmt.Errorf("unknown STOCK_BACKEND %q", cfg.StockBackend)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
