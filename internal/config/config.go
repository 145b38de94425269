package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/model"
)

const envPrefix = "KINFOLK"

type Config struct {
	Port       string
	DBPath     string
	LogLevel   string
	LogFormat  string
	SessionTTL time.Duration
	// AllowedOrigins are websocket origin patterns accepted in addition to the
	// request host.
	AllowedOrigins []string
	// MaxUploadBytes caps multipart image uploads.
	MaxUploadBytes int64
	Media          media.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "kinfolk.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("session_ttl", "720h")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("media.store", model.StoreLocal)
	v.SetDefault("media.local_dir", "media")
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.region", "us-east-1")
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.access_key", "")
	v.SetDefault("media.s3.secret_key", "")
	v.SetDefault("media.s3.prefix", "images/")
}

// Load reads configuration from defaults, the optional YAML file at path and
// KINFOLK_* environment variables, in increasing priority. An empty path
// looks for kinfolk.yaml in the working directory; a missing file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kinfolk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		DBPath:         v.GetString("db_path"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		SessionTTL:     v.GetDuration("session_ttl"),
		AllowedOrigins: splitList(v.GetStringSlice("allowed_origins")),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
		Media: media.Config{
			Store:    v.GetString("media.store"),
			LocalDir: v.GetString("media.local_dir"),
			S3: media.S3Config{
				Bucket:    v.GetString("media.s3.bucket"),
				Region:    v.GetString("media.s3.region"),
				Endpoint:  v.GetString("media.s3.endpoint"),
				AccessKey: v.GetString("media.s3.access_key"),
				SecretKey: v.GetString("media.s3.secret_key"),
				Prefix:    v.GetString("media.s3.prefix"),
			},
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma-separated entries. Environment values arrive as
// one whitespace-split string, so "a.example,b.example" is a single element
// until split here.
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	switch c.Media.Store {
	case model.StoreLocal:
		if c.Media.LocalDir == "" {
			return errors.New("media.local_dir is required for the local store")
		}
	case model.StoreS3:
		if c.Media.S3.Bucket == "" {
			return errors.New("media.s3.bucket is required for the s3 store")
		}
	default:
		return fmt.Errorf("unknown media store %q", c.Media.Store)
	}
	return nil
}
