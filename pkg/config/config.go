package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the module's entire ambient configuration surface
// (SPEC_FULL §4.12): nothing outside cmd/ reads it directly — every
// component below the dispatcher receives its dependencies as
// explicit constructor arguments, matching the teacher's
// dependency-injection convention.
type Config struct {
	App          AppConfig          `yaml:"app" mapstructure:"app"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	SchemaSource SchemaSourceConfig `yaml:"schema_source" mapstructure:"schema_source"`
	Logger       LoggerConfig       `yaml:"logger" mapstructure:"logger"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig configures cmd/dbufserver's fiber listener.
type ServerConfig struct {
	Port         string        `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// SchemaSourceConfig names the default FETCH TYPES collaborator (spec
// SPEC_FULL §4.9): a file path or an s3:// URL, plus the S3 bucket
// region/endpoint needed to build an aws-sdk-go-v2 client when the
// scheme is s3://.
type SchemaSourceConfig struct {
	DefaultPath string `yaml:"default_path" mapstructure:"default_path"`
	S3Region    string `yaml:"s3_region" mapstructure:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint" mapstructure:"s3_endpoint"`
}

// MetricsConfig controls whether/where the Prometheus registry
// (SPEC_FULL §4.11) is exposed.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	ListenAddress string `yaml:"listen_address" mapstructure:"listen_address"`
	Namespace     string `yaml:"namespace" mapstructure:"namespace"`
}

// TracingConfig controls the OpenTelemetry exporter (SPEC_FULL
// §4.11).
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string  `yaml:"service_name" mapstructure:"service_name"`
	ExporterType   string  `yaml:"exporter_type" mapstructure:"exporter_type"` // "stdout", "otlp-grpc"
	OTLPEndpoint   string  `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	SamplingRatio  float64 `yaml:"sampling_ratio" mapstructure:"sampling_ratio"`
}

// Load loads configuration from environment variables and an optional
// config file using Viper, matching the teacher's config.go loading
// shape.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dbufdb")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)
	loadDotEnvFile(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Warning: Error reading config file: %v\n", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("Unable to decode config: %v", err))
	}
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dbufdb")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.stage", string(DevelopmentStage))
	v.SetDefault("app.debug", false)
	v.SetDefault("app.environment", "local")
	v.SetDefault("app.namespace", "default")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("schema_source.default_path", "./schema.json")
	v.SetDefault("schema_source.s3_region", "us-east-1")

	v.SetDefault("logger.type", "zerolog")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "dbufdb")
	v.SetDefault("logger.version", "0.1.0")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_address", ":9090")
	v.SetDefault("metrics.namespace", "dbufdb")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "dbufdb")
	v.SetDefault("tracing.exporter_type", "stdout")
	v.SetDefault("tracing.sampling_ratio", 1.0)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.version", "APP_VERSION")
	v.BindEnv("app.stage", "APP_STAGE")
	v.BindEnv("app.debug", "DEBUG", "APP_DEBUG")
	v.BindEnv("app.environment", "ENVIRONMENT", "APP_ENV")
	v.BindEnv("app.namespace", "NAMESPACE", "APP_NAMESPACE")

	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	v.BindEnv("schema_source.default_path", "SCHEMA_SOURCE_PATH")
	v.BindEnv("schema_source.s3_region", "SCHEMA_SOURCE_S3_REGION")
	v.BindEnv("schema_source.s3_endpoint", "SCHEMA_SOURCE_S3_ENDPOINT")

	v.BindEnv("logger.type", "LOG_TYPE")
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.service_name", "SERVICE_NAME")
	v.BindEnv("logger.version", "SERVICE_VERSION")

	v.BindEnv("metrics.enabled", "METRICS_ENABLED")
	v.BindEnv("metrics.listen_address", "METRICS_LISTEN_ADDRESS")

	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.exporter_type", "TRACING_EXPORTER_TYPE")
	v.BindEnv("tracing.otlp_endpoint", "TRACING_OTLP_ENDPOINT")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app config validation failed: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config validation failed: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics.listen_address cannot be empty when metrics are enabled")
	}
	return nil
}

// loadDotEnvFile loads .env file if it exists, without overriding
// already-set environment variables.
func loadDotEnvFile(_ *viper.Viper) {
	envFile := ".env"
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	data, err := os.ReadFile(envFile)
	if err != nil {
		fmt.Printf("Warning: Could not read .env file: %v\n", err)
		return
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		lineStr := strings.TrimSpace(string(line))
		if lineStr == "" || strings.HasPrefix(lineStr, "#") {
			continue
		}
		parts := strings.SplitN(lineStr, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}
