package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode                string        `mapstructure:"mode"`
	Port                int           `mapstructure:"port"`
	LogLevel            string        `mapstructure:"log_level"`
	ReadLimit           int64         `mapstructure:"read_limit"`
	PingPeriod          time.Duration `mapstructure:"ping_period"`
	InstanceLocator     string        `mapstructure:"instance_locator"`
	SendLimit           int           `mapstructure:"send_limit"`
	SendInterval        time.Duration `mapstructure:"send_interval"`
	// BackpressureStrikes is how many frames a slow subscriber may miss
	// before it is kicked. 0 kicks on the first miss.
	BackpressureStrikes int           `mapstructure:"backpressure_strikes"`
	Room                RoomConfig    `mapstructure:"room"`
	Client              ClientConfig  `mapstructure:"client"`
}

// RoomConfig is the single room every client joins.
type RoomConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	MessageTimer string `mapstructure:"message_timer"`
}

type ClientConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	RealtimeURL    string        `mapstructure:"realtime_url"`
	MessageLimit   int           `mapstructure:"message_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). A missing
// file is not an error; defaults and WHISPER_* variables still apply.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("WHISPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 5200)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("instance_locator", "v1:local:whisper")
	v.SetDefault("send_limit", 20)
	v.SetDefault("send_interval", "10s")
	v.SetDefault("backpressure_strikes", 0)
	v.SetDefault("room.id", "20509997")
	v.SetDefault("room.name", "general")
	v.SetDefault("room.message_timer", "0")
	v.SetDefault("client.api_url", "http://localhost:5200")
	v.SetDefault("client.realtime_url", "ws://localhost:5200/ws")
	v.SetDefault("client.message_limit", 100)
	v.SetDefault("client.request_timeout", "10s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("room", cfg.Room.ID).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Room.ID) == "" {
		errs = append(errs, errors.New("room.id is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.BackpressureStrikes < 0 {
		errs = append(errs, fmt.Errorf("invalid backpressure_strikes %d", c.BackpressureStrikes))
	}
	if c.Client.MessageLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid client.message_limit %d", c.Client.MessageLimit))
	}
	for key, raw := range map[string]string{
		"client.api_url":      c.Client.APIURL,
		"client.realtime_url": c.Client.RealtimeURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid %s %q", key, raw))
		}
	}
	return errors.Join(errs...)
}
