package auth_api_config

import (
	"time"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/obs"
	"github.com/NordCoder/fintrack/internal/outbox"
	pg "github.com/NordCoder/fintrack/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Algorithm  string        `mapstructure:"algorithm"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

func (a *Auth) AsTokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:    []byte(a.JWTSecret),
		Algorithm: a.Algorithm,
	}
}

type Google struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	// Endpoint overrides; empty means Google's public endpoints.
	AuthURL     string `mapstructure:"auth_url"`
	TokenURL    string `mapstructure:"token_url"`
	UserInfoURL string `mapstructure:"userinfo_url"`
}

type OAuth struct {
	Google          Google        `mapstructure:"google"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	StateTTL        time.Duration `mapstructure:"state_ttl"`
}

type Session struct {
	CookieName    string        `mapstructure:"cookie_name"`
	CookiePath    string        `mapstructure:"cookie_path"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type Outbox struct {
	Enable        bool          `mapstructure:"enable"`
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

func (o *Outbox) AsRunnerConfig() outbox.RunnerConfig {
	return outbox.RunnerConfig{
		Workers:       o.Workers,
		BatchSize:     o.BatchSize,
		WaitTime:      o.WaitTime,
		InProgressTTL: o.InProgressTTL,
	}
}

type Config struct {
	App     App       `mapstructure:"app"`
	Server  Server    `mapstructure:"server"`
	DB      pg.Config `mapstructure:"db"`
	OTEL    OTEL      `mapstructure:"otel"`
	Log     Log       `mapstructure:"log"`
	Auth    Auth      `mapstructure:"auth"`
	OAuth   OAuth     `mapstructure:"oauth"`
	Session Session   `mapstructure:"session"`
	Kafka   Kafka     `mapstructure:"kafka"`
	Outbox  Outbox    `mapstructure:"outbox"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

const (
	ErrNoDSN            ErrConfig = "config: db.dsn is required"
	ErrNoSigningKey     ErrConfig = "config: auth.jwt_secret is required"
	ErrNoAlgorithm      ErrConfig = "config: auth.algorithm is required"
	ErrBadAlgorithm     ErrConfig = "config: auth.algorithm must be one of HS256, HS384, HS512"
	ErrBadTTL           ErrConfig = "config: auth.access_ttl and auth.refresh_ttl are required and must be positive"
	ErrNoGoogleClient   ErrConfig = "config: oauth.google.client_id and oauth.google.client_secret are required"
	ErrNoGoogleRedirect ErrConfig = "config: oauth.google.redirect_url is required"
	ErrNoKafkaBrokers   ErrConfig = "config: kafka.brokers is required when outbox.enable is set"
)

func (c *Config) validate() error {
	switch {
	case c.DB.DSN == "":
		return ErrNoDSN
	case c.Auth.JWTSecret == "":
		return ErrNoSigningKey
	case c.Auth.Algorithm == "":
		return ErrNoAlgorithm
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return ErrBadAlgorithm
	}
	switch {
	case c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0:
		return ErrBadTTL
	case c.OAuth.Google.ClientID == "" || c.OAuth.Google.ClientSecret == "":
		return ErrNoGoogleClient
	case c.OAuth.Google.RedirectURL == "":
		return ErrNoGoogleRedirect
	case c.Outbox.Enable && len(c.Kafka.Brokers) == 0:
		return ErrNoKafkaBrokers
	}
	return nil
}
