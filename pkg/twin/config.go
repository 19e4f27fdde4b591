package twin

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/configutil"
)

type Config struct {
	Server      ServerConfig  `mapstructure:"server"`
	Audio       AudioConfig   `mapstructure:"audio"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Environment string        `mapstructure:"environment"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
}

type ServerConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	SocketURL   string `mapstructure:"socket_url"`
	SocketPath  string `mapstructure:"socket_path"`
	StatusPath  string `mapstructure:"status_path"`
	ListenPath  string `mapstructure:"listen_path"`
	SpeakPath   string `mapstructure:"speak_path"`
	TimeoutMS   int    `mapstructure:"timeout_ms"`
	StatusTTLMS int    `mapstructure:"status_ttl_ms"`
}

type AudioConfig struct {
	ChunkIntervalMS int          `mapstructure:"chunk_interval_ms"`
	Source          DeviceConfig `mapstructure:"source"`
	Sink            DeviceConfig `mapstructure:"sink"`
}

type DeviceConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type MetricsConfig struct {
	JSONLPath  string `mapstructure:"jsonl_path"`
	Prometheus bool   `mapstructure:"prometheus"`
	Namespace  string `mapstructure:"namespace"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("server.socket_path", "/api/voice/ws")
	v.SetDefault("server.status_path", "/api/voice/status")
	v.SetDefault("server.listen_path", "/api/voice/listen")
	v.SetDefault("server.speak_path", "/api/voice/speak")
	v.SetDefault("server.timeout_ms", 10000)
	v.SetDefault("server.status_ttl_ms", 30000)
	v.SetDefault("audio.chunk_interval_ms", 500)
	v.SetDefault("audio.source.provider", "none")
	v.SetDefault("audio.sink.provider", "discard")
	v.SetDefault("metrics.namespace", "twin")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Server.BaseURL, "server.base_url"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Server.SocketURL) == "" {
		derived, err := deriveSocketURL(c.Server.BaseURL, c.Server.SocketPath)
		if err != nil {
			return fmt.Errorf("server.socket_url: %w", err)
		}
		c.Server.SocketURL = derived
	}
	return nil
}

// deriveSocketURL maps the REST base to its websocket sibling.
func deriveSocketURL(base, socketPath string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + socketPath
	return u.String(), nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Audio.Source.Settings = expandSettings(cfg.Audio.Source.Settings)
	cfg.Audio.Sink.Settings = expandSettings(cfg.Audio.Sink.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
