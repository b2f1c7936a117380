package config

import (
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
}

type ParameterStoreConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	Region           string        `mapstructure:"region"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	SessionToken     string        `mapstructure:"session_token"`
	Timeout          time.Duration `mapstructure:"timeout"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerReset     time.Duration `mapstructure:"breaker_reset"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	Insecure     bool   `mapstructure:"insecure"`
}

type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type HealthCheckConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Path     string        `mapstructure:"path"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Service        ServiceConfig        `mapstructure:"service"`
	ParameterStore ParameterStoreConfig `mapstructure:"parameter_store"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Refresh        RefreshConfig        `mapstructure:"refresh"`
	HealthCheck    HealthCheckConfig    `mapstructure:"health_check"`
}

// Load reads config.yaml from ./config or the working directory, if present,
// and overlays environment variables.
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom is Load with explicit search paths for config.yaml.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	cfg.Server.Environment = normalizeEnvironment(cfg.Server.Environment)
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4321)
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("service.name", "astro-webui")

	v.SetDefault("parameter_store.endpoint", "")
	v.SetDefault("parameter_store.region", "eu-west-1")
	v.SetDefault("parameter_store.access_key_id", "")
	v.SetDefault("parameter_store.secret_access_key", "")
	v.SetDefault("parameter_store.session_token", "")
	v.SetDefault("parameter_store.timeout", "2s")
	v.SetDefault("parameter_store.breaker_threshold", 5)
	v.SetDefault("parameter_store.breaker_reset", "30s")

	v.SetDefault("logging.level", LogLevelInfo)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "astro-webui")
	v.SetDefault("telemetry.insecure", true)

	v.SetDefault("refresh.interval", "30s")
	v.SetDefault("health_check.interval", "30s")
	v.SetDefault("health_check.path", "/actuator/health")
}

// bindEnv maps the variable names used by the deployment onto config keys.
// The first name listed wins when several are set.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.host":                       {"HOST"},
		"server.port":                       {"PORT"},
		"server.environment":                {"SERVER_ENVIRONMENT", "NODE_ENV"},
		"service.name":                      {"SERVICE_NAME"},
		"parameter_store.endpoint":          {"PARAMETER_STORE_ENDPOINT", "SSM_ENDPOINT"},
		"parameter_store.region":            {"AWS_REGION"},
		"parameter_store.access_key_id":     {"AWS_ACCESS_KEY_ID"},
		"parameter_store.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
		"parameter_store.session_token":     {"AWS_SESSION_TOKEN"},
		"telemetry.otlp_endpoint":           {"OTEL_EXPORTER_OTLP_ENDPOINT"},
		"telemetry.service_name":            {"OTEL_SERVICE_NAME"},
	}

	for key, names := range bindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", EnvProd:
		return EnvProd
	case EnvStaging:
		return EnvStaging
	case "development", "test", EnvDev:
		return EnvDev
	default:
		return env
	}
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

var absolutePath = regexp.MustCompile(`^/`)

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Host, is.Host),
					validation.Field(&sc.Port,
						validation.Required,
						validation.Min(1),
						validation.Max(65535),
					),
				)
			}),
		),
		validation.Field(&c.Service,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServiceConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Name,
						validation.Required,
						validation.Match(regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)),
					),
				)
			}),
		),
		validation.Field(&c.ParameterStore,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ParameterStoreConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ParameterStoreConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Endpoint, is.URL),
					validation.Field(&pc.Region, validation.Required),
					validation.Field(&pc.SecretAccessKey,
						validation.When(pc.AccessKeyID != "", validation.Required),
					),
					validation.Field(&pc.Timeout,
						validation.Required,
						validation.Min(time.Millisecond),
					),
					validation.Field(&pc.BreakerThreshold, validation.Min(0)),
					validation.Field(&pc.BreakerReset,
						validation.When(pc.BreakerThreshold > 0, validation.Required, validation.Min(time.Millisecond)),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Telemetry,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TelemetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TelemetryConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.OTLPEndpoint, validation.By(validateEndpoint)),
					validation.Field(&tc.ServiceName, validation.Required),
				)
			}),
		),
		validation.Field(&c.Refresh,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RefreshConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RefreshConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Interval, validation.Required, validation.Min(time.Second)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval, validation.Required, validation.Min(time.Second)),
					validation.Field(&hc.Path, validation.Required, validation.Match(absolutePath)),
				)
			}),
		),
	)
}

// validateEndpoint accepts the OTLP gRPC endpoint as host:port, optionally
// written as a URL the way OTEL_EXPORTER_OTLP_ENDPOINT usually is.
func validateEndpoint(value interface{}) error {
	endpoint, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if endpoint == "" {
		return nil
	}

	_, port, err := net.SplitHostPort(OTLPHostPort(endpoint))
	if err != nil || port == "" {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	return nil
}

// OTLPHostPort strips a scheme and trailing path from an OTLP endpoint.
func OTLPHostPort(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	if i := strings.Index(endpoint, "/"); i >= 0 {
		endpoint = endpoint[:i]
	}
	return endpoint
}
