package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Reset     ResetSettings     `mapstructure:"reset"`
	Mail      MailSettings      `mapstructure:"mail"`
	GRPC      GRPCSettings      `mapstructure:"grpc"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Hashing   HashingSettings   `mapstructure:"hashing"`
	Password  PasswordSettings  `mapstructure:"password"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
	DocsEnabled bool     `mapstructure:"docs_enabled"`
}

type GRPCSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisSettings configures the Redis connection used for rate limiting.
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	RateLimitPrefix string `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the event producer. An empty broker list disables Kafka.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// JWTSettings configures session tokens.
type JWTSettings struct {
	Secret        string        `mapstructure:"secret"`
	TTL           time.Duration `mapstructure:"ttl"`
	Issuer        string        `mapstructure:"issuer"`
	CookieEnabled bool          `mapstructure:"cookie_enabled"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// ResetSettings configures the password reset workflow.
type ResetSettings struct {
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	URLBase         string        `mapstructure:"url_base"`
	RollbackTimeout time.Duration `mapstructure:"rollback_timeout"`
	SweepSchedule   string        `mapstructure:"sweep_schedule"`
}

// MailSettings selects and configures the outbound mail transport.
type MailSettings struct {
	Transport    string        `mapstructure:"transport"`
	From         string        `mapstructure:"from"`
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	Topic        string        `mapstructure:"topic"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	SigninMaxAttempts        int           `mapstructure:"signin_max_attempts"`
	SignupMaxAttempts        int           `mapstructure:"signup_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// HashingSettings sizes the password hashing worker pool; 0 means one per CPU.
type HashingSettings struct {
	Workers int `mapstructure:"workers"`
}

// PasswordSettings configures the password policy.
type PasswordSettings struct {
	MinLength      int `mapstructure:"min_length"`
	MaxLength      int `mapstructure:"max_length"`
	MinClasses     int `mapstructure:"min_classes"`
	MinZxcvbnScore int `mapstructure:"min_zxcvbn_score"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("IAM")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_origins",
		"app.docs_enabled",
		"grpc.enabled",
		"grpc.host",
		"grpc.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.rate_limit_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.ttl",
		"jwt.issuer",
		"jwt.cookie_enabled",
		"jwt.cookie_secure",
		"reset.token_ttl",
		"reset.url_base",
		"reset.rollback_timeout",
		"reset.sweep_schedule",
		"mail.transport",
		"mail.from",
		"mail.smtp_host",
		"mail.smtp_port",
		"mail.smtp_username",
		"mail.smtp_password",
		"mail.topic",
		"mail.send_timeout",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.signin_max_attempts",
		"rate_limit.signup_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"hashing.workers",
		"password.min_length",
		"password.max_length",
		"password.min_classes",
		"password.min_zxcvbn_score",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run safely with.
func (c *AppConfig) Validate() error {
	var errs []error

	if len(strings.TrimSpace(c.JWT.Secret)) < 32 {
		errs = append(errs, errors.New("jwt.secret must be at least 32 characters"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if c.Reset.TokenTTL <= 0 {
		errs = append(errs, errors.New("reset.token_ttl must be positive"))
	}
	if c.Reset.RollbackTimeout <= 0 {
		errs = append(errs, errors.New("reset.rollback_timeout must be positive"))
	}
	switch c.Mail.Transport {
	case "smtp", "kafka", "log":
	default:
		errs = append(errs, fmt.Errorf("mail.transport %q must be one of smtp, kafka, log", c.Mail.Transport))
	}
	if c.Mail.Transport == "kafka" && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("mail.transport kafka requires kafka.brokers"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "natours-iam")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_origins", []string{})
	v.SetDefault("app.docs_enabled", true)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "natours")
	v.SetDefault("postgres.password", "natours_password")
	v.SetDefault("postgres.database", "natours")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.rate_limit_prefix", "natours:ratelimit")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "natours")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "2160h")
	v.SetDefault("jwt.issuer", "natours-iam")
	v.SetDefault("jwt.cookie_enabled", true)
	v.SetDefault("jwt.cookie_secure", false)

	v.SetDefault("reset.token_ttl", "10m")
	v.SetDefault("reset.url_base", "http://localhost:8080/api/v1/users/reset-password")
	v.SetDefault("reset.rollback_timeout", "5s")
	v.SetDefault("reset.sweep_schedule", "@every 5m")

	v.SetDefault("mail.transport", "log")
	v.SetDefault("mail.from", "Natours <no-reply@natours.io>")
	v.SetDefault("mail.smtp_host", "localhost")
	v.SetDefault("mail.smtp_port", 1025)
	v.SetDefault("mail.topic", "mail.outbound")
	v.SetDefault("mail.send_timeout", "10s")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "natours-iam")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "15m")
	v.SetDefault("rate_limit.signin_max_attempts", 10)
	v.SetDefault("rate_limit.signup_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 5)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("hashing.workers", 0)

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.max_length", 128)
	v.SetDefault("password.min_classes", 2)
	v.SetDefault("password.min_zxcvbn_score", 2)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "IAM_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
