// Package config loads the service configuration from an optional YAML file
// overlaid with BOTO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override: redis.addr -> BOTO_REDIS_ADDR.
const EnvPrefix = "BOTO_"

type Config struct {
	HTTP      HTTP      `mapstructure:"http"`
	Redis     Redis     `mapstructure:"redis"`
	Session   Session   `mapstructure:"session"`
	Database  Database  `mapstructure:"database"`
	WhatsApp  WhatsApp  `mapstructure:"whatsapp"`
	OpenAI    OpenAI    `mapstructure:"openai"`
	Search    Search    `mapstructure:"search"`
	Messages  Messages  `mapstructure:"messages"`
	Log       Log       `mapstructure:"log"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Session struct {
	TTL     time.Duration `mapstructure:"ttl"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type WhatsApp struct {
	// Mode is "official" (Cloud API) or "unofficial" (gateway).
	Mode          string `mapstructure:"mode"`
	APIURL        string `mapstructure:"api_url"`
	AccessToken   string `mapstructure:"access_token"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	VerifyToken   string `mapstructure:"verify_token"`
	ClientToken   string `mapstructure:"client_token"`
}

type OpenAI struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Search struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Messages struct {
	// Path overrides the embedded catalog when set.
	Path string `mapstructure:"path"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func defaults() map[string]any {
	return map[string]any{
		"http":     map[string]any{"addr": ":8080"},
		"redis":    map[string]any{"addr": "localhost:6379", "password": "", "db": 0, "prefix": "boto:"},
		"session":  map[string]any{"ttl": "5m", "lock_ttl": "30s"},
		"database": map[string]any{"url": ""},
		"whatsapp": map[string]any{
			"mode":            "official",
			"api_url":         "https://graph.facebook.com/v21.0",
			"access_token":    "",
			"phone_number_id": "",
			"verify_token":    "",
			"client_token":    "",
		},
		"openai":    map[string]any{"base_url": "https://api.openai.com/v1", "api_key": "", "model": "gpt-4o-mini", "timeout": "20s"},
		"search":    map[string]any{"base_url": "http://localhost:8000", "timeout": "15s"},
		"messages":  map[string]any{"path": ""},
		"log":       map[string]any{"level": "info"},
		"ratelimit": map[string]any{"rps": 5, "burst": 10},
	}
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	cfg, err := decode(defaults())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds the configuration: defaults, then the YAML file at path (if
// not empty), then BOTO_* environment variables.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		merge(raw, file)
	}

	for _, key := range Keys() {
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v, ok := lookup(name); ok {
			set(raw, key, v)
		}
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would only fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.LockTTL <= 0 {
		errs = append(errs, errors.New("session.lock_ttl must be positive"))
	}
	switch c.WhatsApp.Mode {
	case "official", "unofficial":
	default:
		errs = append(errs, fmt.Errorf("whatsapp.mode must be official or unofficial, got %q", c.WhatsApp.Mode))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("ratelimit values must not be negative"))
	}
	return errors.Join(errs...)
}

// Keys lists every dotted configuration key, sorted.
func Keys() []string {
	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			keys = append(keys, prefix+k)
		}
	}
	walk("", defaults())
	sort.Strings(keys)
	return keys
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func set(m map[string]any, key string, value string) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		sub, ok := m[p].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			m[p] = sub
		}
		m = sub
	}
	m[parts[len(parts)-1]] = value
}
