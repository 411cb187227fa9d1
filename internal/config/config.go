package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type SecurityConfig struct {
	SessionTTL        time.Duration
	SessionCookieName string
	// CookieSecure marks the session cookie Secure even outside production.
	// In production the Secure attribute is always set regardless of this
	// value.
	CookieSecure bool
}

// BootstrapConfig seeds the two canonical portal accounts at startup. This
// is a deployment convenience only: accounts are never overwritten, and an
// empty password means a random one is generated and logged once with a
// rotation notice.
type BootstrapConfig struct {
	Enabled       bool
	TPOPassword   string
	AdminPassword string
}

type RatePolicyConfig struct {
	Max    int
	Window time.Duration
}

type RateLimitConfig struct {
	Auth RatePolicyConfig
	API  RatePolicyConfig
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type AuditConfig struct {
	ArchiveEnabled bool
	// ArchiveSchedule is a cron expression (with seconds) for the archive
	// job. Defaults to daily just after midnight UTC.
	ArchiveSchedule string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Bootstrap        BootstrapConfig
	RateLimit        RateLimitConfig
	Storage          StorageConfig
	Audit            AuditConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

// CookieSecure resolves the effective Secure attribute for the session
// cookie: forced on in production, configurable elsewhere.
func (c *AppConfig) CookieSecure() bool {
	return c.Production() || c.Security.CookieSecure
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CAMPUSDESK")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("security.sessionttl", "24h")
	v.SetDefault("security.sessioncookiename", "campusdesk_session")
	v.SetDefault("security.cookiesecure", false)

	v.SetDefault("bootstrap.enabled", true)

	v.SetDefault("ratelimit.auth.max", 5)
	v.SetDefault("ratelimit.auth.window", "15m")
	v.SetDefault("ratelimit.api.max", 100)
	v.SetDefault("ratelimit.api.window", "15m")

	v.SetDefault("storage.bucket", "campusdesk-audit-archive")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("audit.archiveenabled", false)
	v.SetDefault("audit.archiveschedule", "0 10 0 * * *")
}
