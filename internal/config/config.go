package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	ServiceName string          `mapstructure:"service_name"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Store       StoreConfig     `mapstructure:"store"`
	Mongo       MongoConfig     `mapstructure:"mongo"`
	Artifacts   ArtifactsConfig `mapstructure:"artifacts"`
	Redis       RedisConfig     `mapstructure:"redis"`
	NATS        NATSConfig      `mapstructure:"nats"`
	JWT         JWTConfig       `mapstructure:"jwt"`
	Geocoding   GeocodingConfig `mapstructure:"geocoding"`
	SMTP        SMTPConfig      `mapstructure:"smtp"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// StoreConfig selects the document store. OpTimeout bounds every service
// operation, transaction included.
type StoreConfig struct {
	Driver    string        `mapstructure:"driver"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type ArtifactsConfig struct {
	Driver         string        `mapstructure:"driver"`
	CleanupTimeout time.Duration `mapstructure:"cleanup_timeout"`
	Local          LocalConfig   `mapstructure:"local"`
	S3             S3Config      `mapstructure:"s3"`
	GCS            GCSConfig     `mapstructure:"gcs"`
}

type LocalConfig struct {
	Dir string `mapstructure:"dir"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type GeocodingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "places-service")

	v.SetDefault("http.port", "5000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_upload_bytes", 1<<20)

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.op_timeout", 10*time.Second)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("mongo.database", "places")
	v.SetDefault("mongo.username", "")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)

	v.SetDefault("artifacts.driver", "local")
	v.SetDefault("artifacts.cleanup_timeout", 5*time.Second)
	v.SetDefault("artifacts.local.dir", "uploads/images")
	v.SetDefault("artifacts.s3.endpoint", "localhost:9000")
	v.SetDefault("artifacts.s3.access_key", "minioadmin")
	v.SetDefault("artifacts.s3.secret_key", "minioadmin")
	v.SetDefault("artifacts.s3.bucket", "places-images")
	v.SetDefault("artifacts.s3.use_ssl", false)
	v.SetDefault("artifacts.gcs.bucket", "")
	v.SetDefault("artifacts.gcs.public_base_url", "https://storage.googleapis.com")
	v.SetDefault("artifacts.gcs.credentials_file", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("nats.url", "")

	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.ttl", time.Hour)

	v.SetDefault("geocoding.api_key", "")
	v.SetDefault("geocoding.base_url", "")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@places.local")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "places-service")

	v.SetDefault("metrics.port", "9095")
}

// Load reads an optional .env file and then the environment. Nested keys map
// to upper-case variables with underscores, e.g. mongo.uri -> MONGO_URI.
func Load(appLogger *logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		appLogger.Debug("Config.Load: no .env file found, relying on environment variables")
	}
	return load(viper.New(), appLogger)
}

func load(v *viper.Viper, appLogger *logger.Logger) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == defaultJWTSecret {
		appLogger.Warn("Config.Load: JWT_SECRET is set to its default insecure value. Please set a strong secret in your environment or .env file.")
	}

	appLogger.Debug("Config.Load: configuration loaded",
		"http_port", cfg.HTTP.Port,
		"store_driver", cfg.Store.Driver,
		"mongo_database", cfg.Mongo.Database,
		"artifacts_driver", cfg.Artifacts.Driver,
		"redis_enabled", cfg.Redis.Addr != "",
		"nats_enabled", cfg.NATS.URL != "",
		"smtp_enabled", cfg.SMTP.Host != "",
		"tracing_endpoint", cfg.Tracing.Endpoint,
		"metrics_port", cfg.Metrics.Port,
	)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("config: MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Artifacts.Driver {
	case "local", "s3":
	case "gcs":
		if c.Artifacts.GCS.Bucket == "" {
			return fmt.Errorf("config: ARTIFACTS_GCS_BUCKET is required for the gcs artifact store")
		}
	default:
		return fmt.Errorf("config: unknown ARTIFACTS_DRIVER %q", c.Artifacts.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: HTTP_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
