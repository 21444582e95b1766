package authgate_config

import (
	"fmt"
	"time"

	authn "github.com/NordCoder/Authgate/internal/auth"
	"github.com/NordCoder/Authgate/internal/httpx"
	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/internal/obs/retry"
	"github.com/NordCoder/Authgate/internal/outbox"
	"github.com/NordCoder/Authgate/internal/repository/kafka"
	pg "github.com/NordCoder/Authgate/internal/repository/postgres"
	"github.com/NordCoder/Authgate/internal/services/authgate/janitor"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// IsProduction reports whether the service runs with production rules.
func (a App) IsProduction() bool {
	return a.Env == "prod" || a.Env == "production"
}

type Server struct {
	Port            int           `mapstructure:"port"`
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type DB struct {
	Driver    string `mapstructure:"driver"`
	pg.Config `mapstructure:",squash"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		Version:     c.App.Version,
		Env:         c.App.Env,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	AccessSecret           string `mapstructure:"access_secret"`
	RefreshSecret          string `mapstructure:"refresh_secret"`
	AccessLifetimeSeconds  int    `mapstructure:"access_lifetime_seconds"`
	RefreshLifetimeSeconds int    `mapstructure:"refresh_lifetime_seconds"`
	BcryptCost             int    `mapstructure:"bcrypt_cost"`
}

func (a Auth) AccessTTL() time.Duration  { return time.Duration(a.AccessLifetimeSeconds) * time.Second }
func (a Auth) RefreshTTL() time.Duration { return time.Duration(a.RefreshLifetimeSeconds) * time.Second }

// IssuerConfig converts the section for auth.NewIssuer.
func (a Auth) IssuerConfig() authn.IssuerConfig {
	return authn.IssuerConfig{
		AccessSecret:  []byte(a.AccessSecret),
		RefreshSecret: []byte(a.RefreshSecret),
		AccessTTL:     a.AccessTTL(),
		RefreshTTL:    a.RefreshTTL(),
	}
}

type Events struct {
	Enabled bool                `mapstructure:"enabled"`
	Kafka   kafka.ProducerConfig `mapstructure:"kafka"`
	Outbox  outbox.RunnerConfig  `mapstructure:"outbox"`
	Retry   retry.Config         `mapstructure:"retry"`
}

type Config struct {
	App     App              `mapstructure:"app"`
	Server  Server           `mapstructure:"server"`
	DB      DB               `mapstructure:"db"`
	OTEL    OTEL             `mapstructure:"otel"`
	Log     Log              `mapstructure:"log"`
	Auth    Auth             `mapstructure:"auth"`
	Events  Events           `mapstructure:"events"`
	Janitor janitor.Config   `mapstructure:"janitor"`
	CORS    httpx.CORSConfig `mapstructure:"cors"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   c.Log.Level,
		Pretty:  c.Log.Pretty,
		Service: c.App.Name,
		Env:     c.App.Env,
		Version: c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

const ErrInsecureSecrets ErrConfig = "development JWT secrets are not allowed in production"

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			return ErrConfig("db.dsn is required for the postgres driver")
		}
	case DriverMemory:
		if c.App.IsProduction() {
			return ErrConfig("db.driver=memory is not allowed in production")
		}
		if c.Events.Enabled {
			return ErrConfig("events need the postgres driver")
		}
	default:
		return ErrConfig(fmt.Sprintf("unknown db.driver %q", c.DB.Driver))
	}
	if c.Auth.AccessLifetimeSeconds <= 0 || c.Auth.RefreshLifetimeSeconds <= 0 {
		return ErrConfig("token lifetimes must be positive")
	}
	if c.App.IsProduction() && c.Auth.IssuerConfig().UsesDefaultSecrets() {
		return ErrInsecureSecrets
	}
	if c.Events.Enabled && (len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "") {
		return ErrConfig("events.kafka.brokers and events.kafka.topic are required when events are enabled")
	}
	return nil
}
