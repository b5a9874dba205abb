// Package config loads freezer settings from defaults, an optional YAML
// file and FREEZER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Remote drivers.
const (
	DriverDisabled = "disabled"
	DriverMemory   = "memory"
	DriverHub      = "hub"
	DriverS3       = "s3"
)

type Config struct {
	LogLevel       string         `mapstructure:"log_level"`
	DataDir        string         `mapstructure:"data_dir"`
	CacheFile      string         `mapstructure:"cache_file"`
	ShareStateFile string         `mapstructure:"share_state_file"`
	Remote         RemoteConfig   `mapstructure:"remote"`
	Reminder       ReminderConfig `mapstructure:"reminder"`
	Hub            HubConfig      `mapstructure:"hub"`
}

type RemoteConfig struct {
	Driver      string        `mapstructure:"driver"`
	SyncTimeout time.Duration `mapstructure:"sync_timeout"`
	PushTimeout time.Duration `mapstructure:"push_timeout"`
	// Passphrase seals record payloads before they leave the device. Empty
	// stores them in clear.
	Passphrase string         `mapstructure:"passphrase"`
	Hub        RemoteHub      `mapstructure:"hub"`
	S3         RemoteS3Config `mapstructure:"s3"`
}

type RemoteHub struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type RemoteS3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	PathStyle    bool   `mapstructure:"path_style"`
	ShareBaseURL string `mapstructure:"share_base_url"`
}

type ReminderConfig struct {
	VAPIDPublicKey    string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey   string `mapstructure:"vapid_private_key"`
	Subscriber        string `mapstructure:"subscriber"`
	SubscriptionsFile string `mapstructure:"subscriptions_file"`

	PostmarkToken string   `mapstructure:"postmark_token"`
	EmailFrom     string   `mapstructure:"email_from"`
	EmailTo       []string `mapstructure:"email_to"`
}

// EmailEnabled reports whether reminders are also delivered by email.
func (r ReminderConfig) EmailEnabled() bool {
	return r.PostmarkToken != ""
}

type HubConfig struct {
	Addr         string `mapstructure:"addr"`
	DBPath       string `mapstructure:"db_path"`
	APIKey       string `mapstructure:"api_key"`
	ShareBaseURL string `mapstructure:"share_base_url"`
	ShareSecret  string `mapstructure:"share_secret"`
}

// RemoteEnabled reports whether a remote store is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.Driver != DriverDisabled
}

// CachePath is the local document cache location.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, c.CacheFile)
}

// ShareStatePath is where the accepted share is remembered.
func (c *Config) ShareStatePath() string {
	return filepath.Join(c.DataDir, c.ShareStateFile)
}

// SubscriptionsPath is where web push subscriptions are kept.
func (c *Config) SubscriptionsPath() string {
	if c.Reminder.SubscriptionsFile == "" || filepath.IsAbs(c.Reminder.SubscriptionsFile) {
		return c.Reminder.SubscriptionsFile
	}
	return filepath.Join(c.DataDir, c.Reminder.SubscriptionsFile)
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "freezer")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("cache_file", "freezer-data.json")
	v.SetDefault("share_state_file", "share-state.json")

	v.SetDefault("remote.driver", DriverDisabled)
	v.SetDefault("remote.sync_timeout", 2*time.Second)
	v.SetDefault("remote.push_timeout", 15*time.Second)
	v.SetDefault("remote.passphrase", "")
	v.SetDefault("remote.hub.url", "")
	v.SetDefault("remote.hub.api_key", "")
	v.SetDefault("remote.s3.bucket", "")
	v.SetDefault("remote.s3.region", "us-east-1")
	v.SetDefault("remote.s3.endpoint", "")
	v.SetDefault("remote.s3.access_key", "")
	v.SetDefault("remote.s3.secret_key", "")
	v.SetDefault("remote.s3.path_style", false)
	v.SetDefault("remote.s3.share_base_url", "")

	v.SetDefault("reminder.vapid_public_key", "")
	v.SetDefault("reminder.vapid_private_key", "")
	v.SetDefault("reminder.subscriber", "")
	v.SetDefault("reminder.subscriptions_file", "push-subscriptions.json")
	v.SetDefault("reminder.postmark_token", "")
	v.SetDefault("reminder.email_from", "")
	v.SetDefault("reminder.email_to", []string{})

	v.SetDefault("hub.addr", ":8088")
	v.SetDefault("hub.db_path", "freezerhub.db")
	v.SetDefault("hub.api_key", "")
	v.SetDefault("hub.share_base_url", "")
	v.SetDefault("hub.share_secret", "")
}

// Load reads configuration. path names an optional YAML file; a missing
// file is only an error when path was given explicitly. A .env file in the
// working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FREEZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver-specific settings.
func (c *Config) Validate() error {
	switch c.Remote.Driver {
	case DriverDisabled, DriverMemory:
	case DriverHub:
		if c.Remote.Hub.URL == "" {
			return errors.New("remote.hub.url is required for the hub driver")
		}
	case DriverS3:
		if c.Remote.S3.Bucket == "" {
			return errors.New("remote.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown remote driver %q", c.Remote.Driver)
	}
	if c.Remote.SyncTimeout <= 0 || c.Remote.PushTimeout <= 0 {
		return errors.New("remote timeouts must be positive")
	}
	if c.Reminder.EmailEnabled() && (c.Reminder.EmailFrom == "" || len(c.Reminder.EmailTo) == 0) {
		return errors.New("reminder.email_from and reminder.email_to are required with a postmark token")
	}
	return nil
}
