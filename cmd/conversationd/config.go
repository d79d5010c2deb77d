package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the configuration of conversationd. It is read from a YAML
// file and CONVERSATION_* environment variables, the latter winning.
type Config struct {
	Listen    string          `mapstructure:"listen"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	Store     StoreConfig     `mapstructure:"store"`
	Files     FilesConfig     `mapstructure:"files"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Directory DirectoryConfig `mapstructure:"directory"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

type HTTPConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size"`
}

type MailboxConfig struct {
	PageSize       int           `mapstructure:"page_size"`
	MaxFolderDepth int           `mapstructure:"max_folder_depth"`
	Quota          int64         `mapstructure:"quota"`
	TrashRetention time.Duration `mapstructure:"trash_retention"`
	CleanupEvery   time.Duration `mapstructure:"cleanup_every"`
	ExportDomain   string        `mapstructure:"export_domain"`
}

// StoreConfig selects where messages and folders live.
type StoreConfig struct {
	Type     string         `mapstructure:"type"` // memory, postgres or mongo
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// FilesConfig selects where attachment bytes live.
type FilesConfig struct {
	Type  string      `mapstructure:"type"` // memory, s3 or gcs
	S3    S3Config    `mapstructure:"s3"`
	GCS   GCSConfig   `mapstructure:"gcs"`
	Cache CacheConfig `mapstructure:"cache"`
}

type S3Config struct {
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
	Region     string `mapstructure:"region"`
	Endpoint   string `mapstructure:"endpoint"`
	PathStyle  bool   `mapstructure:"path_style"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	RoleARN    string `mapstructure:"role_arn"`
	ExternalID string `mapstructure:"external_id"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// CacheConfig puts a local disk cache in front of remote attachments.
type CacheConfig struct {
	Dir     string        `mapstructure:"dir"`
	MaxSize int64         `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addrs     []string      `mapstructure:"addrs"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Events    bool          `mapstructure:"events"`
	UnreadTTL time.Duration `mapstructure:"unread_ttl"`
}

type TelemetryConfig struct {
	Tracing bool `mapstructure:"tracing"`
	Metrics bool `mapstructure:"metrics"`
}

// DirectoryConfig lists the users and groups mail can be sent to.
type DirectoryConfig struct {
	Users  []DirectoryUser  `mapstructure:"users"`
	Groups []DirectoryGroup `mapstructure:"groups"`
}

type DirectoryUser struct {
	ID          string `mapstructure:"id"`
	DisplayName string `mapstructure:"display_name"`
	Name        string `mapstructure:"name"`
	Profile     string `mapstructure:"profile"`
	Active      bool   `mapstructure:"active"`
}

type DirectoryGroup struct {
	ID      string   `mapstructure:"id"`
	Name    string   `mapstructure:"name"`
	Members []string `mapstructure:"members"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.rate_limit", 20)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("mailbox.cleanup_every", time.Hour)
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.mongo.database", "conversation")
	v.SetDefault("files.type", "memory")
	v.SetDefault("files.cache.ttl", 12*time.Hour)
	v.SetDefault("redis.unread_ttl", time.Minute)
	// Keys without a default are only seen in the environment when bound.
	for _, key := range []string{"auth.secret", "store.postgres.dsn", "store.mongo.uri", "redis.password"} {
		_ = v.BindEnv(key)
	}
}

// LoadConfig reads path, if not empty, over the defaults and the
// environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("conversation")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required")
	}
	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("config: store.postgres.dsn is required")
		}
	case "mongo":
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("config: store.mongo.uri is required")
		}
	default:
		return fmt.Errorf("config: unknown store type %q", c.Store.Type)
	}
	switch c.Files.Type {
	case "memory", "s3", "gcs":
	default:
		return fmt.Errorf("config: unknown files type %q", c.Files.Type)
	}
	if c.Redis.Events && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("config: redis.events needs redis.addrs")
	}
	return nil
}
