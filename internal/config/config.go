package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	ChannelBase            string
	StreamKeepAlive        time.Duration
	BroadcastHeartbeat     time.Duration
	BroadcastStaleCutoff   time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CollectionKey builds the shared-store key for a named collection, e.g.
// "portal:announcements". The key namespace is shared with the dashboards and
// must stay stable across features.
func (c Config) CollectionKey(name string) string {
	return fmt.Sprintf("%s:%s", c.ChannelBase, name)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SMA Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "portal")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("broadcast.heartbeat", "1s")
	v.SetDefault("broadcast.stale_cutoff", "10s")
	v.SetDefault("cloudinary.folder", "portal/audio")

	keepAlive, err := parseDuration(v, "stream.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stream keepalive: %w", err)
	}

	heartbeat, err := parseDuration(v, "broadcast.heartbeat", time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid broadcast heartbeat: %w", err)
	}

	staleCutoff, err := parseDuration(v, "broadcast.stale_cutoff", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid broadcast stale cutoff: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		ChannelBase:            v.GetString("channel.base"),
		StreamKeepAlive:        keepAlive,
		BroadcastHeartbeat:     heartbeat,
		BroadcastStaleCutoff:   staleCutoff,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ChannelBase == "" {
		cfg.ChannelBase = "portal"
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}

	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
