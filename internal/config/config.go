package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Ledger backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// envBindings maps config keys onto the environment variables that override them.
var envBindings = map[string]string{
	"server.port":              "PORT",
	"server.read_timeout":      "SERVER_READ_TIMEOUT",
	"server.write_timeout":     "SERVER_WRITE_TIMEOUT",
	"server.request_timeout":   "SERVER_REQUEST_TIMEOUT",
	"server.allowed_origins":   "SERVER_ALLOWED_ORIGINS",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.name":            "DATABASE_NAME",
	"database.ssl_mode":        "DATABASE_SSL_MODE",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"jwt.secret_key":           "JWT_SECRET_KEY",
	"ledger.backend":           "LEDGER_BACKEND",
	"ledger.default_currency":  "LEDGER_DEFAULT_CURRENCY",
	"log.level":                "LOG_LEVEL",
	"log.format":               "LOG_FORMAT",
	"retry.max_attempts":       "RETRY_MAX_ATTEMPTS",
	"retry.initial_delay":      "RETRY_INITIAL_DELAY",
	"retry.multiplier":         "RETRY_MULTIPLIER",
	"checkout.poll_interval":   "CHECKOUT_POLL_INTERVAL",
	"checkout.poll_timeout":    "CHECKOUT_POLL_TIMEOUT",
	"checkout.result_ttl":      "CHECKOUT_RESULT_TTL",
	"checkout.public_base_url": "CHECKOUT_PUBLIC_BASE_URL",
}

// Load points viper at an optional .env file and binds the environment
// overrides. A missing file is not an error.
func Load(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	}
	viper.AutomaticEnv()
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	if path == "" {
		return nil
	}
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	// dotenv keys land flat (ledger_backend); lift them onto the dotted keys
	// unless the real environment already provides the value.
	for key, env := range envBindings {
		fileKey := strings.ToLower(env)
		if _, ok := os.LookupEnv(env); !ok && viper.InConfig(fileKey) {
			viper.Set(key, viper.Get(fileKey))
		}
	}
	return nil
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	JWTSecret       string
	LedgerBackend   string
	DefaultCurrency string
}

func GetServerConfig() *ServerConfig {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 75*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.request_timeout", 70*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.allowed_origins", []string{})
	viper.SetDefault("ledger.backend", BackendPostgres)
	viper.SetDefault("ledger.default_currency", "XOF")

	return &ServerConfig{
		Port:            viper.GetString("server.port"),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		IdleTimeout:     viper.GetDuration("server.idle_timeout"),
		RequestTimeout:  viper.GetDuration("server.request_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		AllowedOrigins:  viper.GetStringSlice("server.allowed_origins"),
		JWTSecret:       viper.GetString("jwt.secret_key"),
		LedgerBackend:   viper.GetString("ledger.backend"),
		DefaultCurrency: viper.GetString("ledger.default_currency"),
	}
}

// AllowCredentials reports whether CORS may expose credentialed responses:
// only to an explicit origin list without wildcards.
func (c *ServerConfig) AllowCredentials() bool {
	if len(c.AllowedOrigins) == 0 {
		return false
	}
	for _, origin := range c.AllowedOrigins {
		if strings.Contains(origin, "*") {
			return false
		}
	}
	return true
}
