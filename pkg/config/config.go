package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Lockout       LockoutConfig
	TwoFactor     TwoFactorConfig
	Lease         LeaseConfig
	Uploads       UploadsConfig
	Mail          MailConfig
	Portal        PortalConfig
	Outbox        OutboxConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTFOLIO_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTFOLIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RENTFOLIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTFOLIO_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"RENTFOLIO_FRONTEND_URL"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RENTFOLIO_DB_DSN"`
	Driver string `envconfig:"RENTFOLIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTFOLIO_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTFOLIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTFOLIO_DB_USER"`
	LegacyPassword string `envconfig:"RENTFOLIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTFOLIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTFOLIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTFOLIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTFOLIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTFOLIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTFOLIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTFOLIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTFOLIO_REDIS_ADDR"`
	Password     string        `envconfig:"RENTFOLIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTFOLIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTFOLIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTFOLIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTFOLIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTFOLIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTFOLIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RENTFOLIO_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RENTFOLIO_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RENTFOLIO_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RENTFOLIO_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTFOLIO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTFOLIO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTFOLIO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTFOLIO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTFOLIO_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"RENTFOLIO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"RENTFOLIO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"RENTFOLIO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	TwoFAWindow     time.Duration `envconfig:"RENTFOLIO_AUTH_RATE_LIMIT_2FA_WINDOW" default:"5m"`
	TwoFAEmailLimit int           `envconfig:"RENTFOLIO_AUTH_RATE_LIMIT_2FA_EMAIL_LIMIT" default:"10"`
	TwoFAIPLimit    int           `envconfig:"RENTFOLIO_AUTH_RATE_LIMIT_2FA_IP_LIMIT" default:"30"`
}

type LockoutConfig struct {
	MaxFailedAttempts int           `envconfig:"RENTFOLIO_LOCKOUT_MAX_FAILED_ATTEMPTS" default:"5"`
	Duration          time.Duration `envconfig:"RENTFOLIO_LOCKOUT_DURATION" default:"30m"`
}

type TwoFactorConfig struct {
	CodeLength int           `envconfig:"RENTFOLIO_2FA_CODE_LENGTH" default:"6"`
	CodeTTL    time.Duration `envconfig:"RENTFOLIO_2FA_CODE_TTL" default:"10m"`
}

type LeaseConfig struct {
	// DefaultDays seeds move_out_date on assignment when no lease term is
	// provided. Whether a 30-day default is real product intent is an open
	// product question, so it stays a knob instead of a constant.
	DefaultDays int `envconfig:"RENTFOLIO_LEASE_DEFAULT_DAYS" default:"30"`
}

type UploadsConfig struct {
	Dir         string `envconfig:"RENTFOLIO_UPLOAD_FOLDER" default:"uploads"`
	MaxUploadMB int    `envconfig:"RENTFOLIO_MAX_UPLOAD_MB" default:"25"`
}

type MailConfig struct {
	APIBaseURL string `envconfig:"RENTFOLIO_MAIL_API_URL"`
	APIKey     string `envconfig:"RENTFOLIO_MAIL_API_KEY"`
	FromEmail  string `envconfig:"RENTFOLIO_MAIL_FROM_EMAIL" default:"no-reply@rentfolio.app"`
	FromName   string `envconfig:"RENTFOLIO_MAIL_FROM_NAME" default:"Rentfolio"`
}

type PortalConfig struct {
	BaseURL string        `envconfig:"RENTFOLIO_SUBDOMAIN_API_URL"`
	APIKey  string        `envconfig:"RENTFOLIO_CROSS_DOMAIN_API_KEY"`
	Timeout time.Duration `envconfig:"RENTFOLIO_SUBDOMAIN_TIMEOUT" default:"15s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RENTFOLIO_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RENTFOLIO_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RENTFOLIO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RENTFOLIO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RENTFOLIO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
