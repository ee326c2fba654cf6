package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	NotifyDriverLog      = "log"
	NotifyDriverRabbitMQ = "rabbitmq"

	EventsDriverNone  = "none"
	EventsDriverKafka = "kafka"
)

type Config struct {
	HTTPAddress   string
	GRPCAddress   string
	HTTPSCertFile string
	HTTPSKeyFile  string

	StorageDriver string
	DatabaseURL   string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	Issuer     string
	Audience   string
	SessionTTL time.Duration

	CookieName   string
	CookieDomain string
	CookieSecure bool

	PasswordPepper string

	ResetTokenTTL time.Duration
	ResetURL      string

	NotifyDriver string
	RabbitMQURL  string
	ResetQueue   string

	EventsDriver string
	KafkaBrokers []string
	KafkaTopic   string

	DispatchWorkers     int
	DispatchQueueSize   int
	DispatchMaxAttempts int

	RequestTimeout time.Duration

	AllowedOrigins   []string
	AllowCredentials bool

	RateLimitRPS   int
	RateLimitBurst int

	LogLevel string
}

func (c *Config) TLSEnabled() bool {
	return c.HTTPSCertFile != "" && c.HTTPSKeyFile != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8082")
	v.SetDefault("GRPC_ADDRESS", "")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ISSUER", "dt-user")
	v.SetDefault("JWT_AUDIENCE", "dt")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("COOKIE_NAME", "dt-auth")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("RESET_URL", "http://localhost:8082/forgot/2/resetPassword")
	v.SetDefault("NOTIFY_DRIVER", NotifyDriverLog)
	v.SetDefault("RESET_QUEUE", "password_reset_emails")
	v.SetDefault("EVENTS_DRIVER", EventsDriverNone)
	v.SetDefault("KAFKA_TOPIC", "user-events")
	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("DISPATCH_QUEUE_SIZE", 256)
	v.SetDefault("DISPATCH_MAX_ATTEMPTS", 3)
	v.SetDefault("REQUEST_TIMEOUT", "5s")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("LOG_LEVEL", "debug")
}

// Load reads configuration from the environment, falling back to an optional
// config.yaml in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	sessionTTL, err := duration(v, "SESSION_TTL")
	if err != nil {
		return nil, err
	}
	resetTTL, err := duration(v, "RESET_TOKEN_TTL")
	if err != nil {
		return nil, err
	}
	reqTimeout, err := duration(v, "REQUEST_TIMEOUT")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddress:   v.GetString("HTTP_ADDRESS"),
		GRPCAddress:   v.GetString("GRPC_ADDRESS"),
		HTTPSCertFile: v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:  v.GetString("HTTPS_KEY_FILE"),

		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseURL:   v.GetString("DATABASE_URL"),

		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		JWTSecret:  v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Audience:   v.GetString("JWT_AUDIENCE"),
		SessionTTL: sessionTTL,

		CookieName:   v.GetString("COOKIE_NAME"),
		CookieDomain: v.GetString("COOKIE_DOMAIN"),
		CookieSecure: v.GetBool("COOKIE_SECURE"),

		PasswordPepper: v.GetString("PASSWORD_PEPPER"),

		ResetTokenTTL: resetTTL,
		ResetURL:      v.GetString("RESET_URL"),

		NotifyDriver: strings.ToLower(v.GetString("NOTIFY_DRIVER")),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		ResetQueue:   v.GetString("RESET_QUEUE"),

		EventsDriver: strings.ToLower(v.GetString("EVENTS_DRIVER")),
		KafkaBrokers: parseCSV(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		DispatchWorkers:     v.GetInt("DISPATCH_WORKERS"),
		DispatchQueueSize:   v.GetInt("DISPATCH_QUEUE_SIZE"),
		DispatchMaxAttempts: v.GetInt("DISPATCH_MAX_ATTEMPTS"),

		RequestTimeout: reqTimeout,

		AllowedOrigins:   parseCSV(v.GetString("ALLOWED_ORIGINS")),
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),

		RateLimitRPS:   v.GetInt("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	switch c.NotifyDriver {
	case NotifyDriverLog:
	case NotifyDriverRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for rabbitmq notifications"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_DRIVER %q", c.NotifyDriver))
	}
	switch c.EventsDriver {
	case EventsDriverNone:
	case EventsDriverKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for kafka events"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_DRIVER %q", c.EventsDriver))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.DispatchWorkers <= 0 || c.DispatchQueueSize <= 0 || c.DispatchMaxAttempts <= 0 {
		errs = append(errs, errors.New("DISPATCH_* values must be positive"))
	}
	if (c.HTTPSCertFile == "") != (c.HTTPSKeyFile == "") {
		errs = append(errs, errors.New("HTTPS_CERT_FILE and HTTPS_KEY_FILE must be set together"))
	}
	return errors.Join(errs...)
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func parseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
