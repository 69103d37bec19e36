package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/statlab-cli/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. STATLAB_DATASET_SIZE.
const EnvPrefix = "STATLAB"

// ErrUnknownKey is returned by Set for keys outside Global.
var ErrUnknownKey = errors.New("unknown config key")

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Dataset generation
	DatasetSize int    `mapstructure:"dataset_size" yaml:"dataset_size"`
	Seed        int64  `mapstructure:"seed" yaml:"seed"`
	DatasetsDir string `mapstructure:"datasets_dir" yaml:"datasets_dir"`

	ServerAddr           string `mapstructure:"server_addr" yaml:"server_addr"`
	NarrationConcurrency int    `mapstructure:"narration_concurrency" yaml:"narration_concurrency"`
}

// Dir returns ~/.statlab.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".statlab"), nil
}

// Save writes c to cfgFile, or to ~/.statlab/config.yaml when cfgFile is empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from defaults, the config file, .env files and the
// environment. Later sources win: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("gemini_api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY")

	v.SetDefault("default_provider", "gemini")
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 256)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("dataset_size", 200)
	v.SetDefault("seed", 0)
	v.SetDefault("datasets_dir", "")
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("narration_concurrency", 3)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DatasetsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.DatasetsDir = filepath.Join(dir, "datasets")
	} else {
		d, err := utils.ExpandHome(c.DatasetsDir)
		if err != nil {
			return nil, err
		}
		c.DatasetsDir = d
	}
	return &c, nil
}

// loadDotEnv reads .env from the working directory and ~/.statlab/.env.
// Variables already present in the environment are not overridden.
func loadDotEnv() {
	files := []string{".env"}
	if dir, err := Dir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	for _, f := range files {
		if utils.Exists(f) {
			_ = godotenv.Load(f)
		}
	}
}

// Keys lists every settable key in display order.
func Keys() []string {
	return []string{
		"api_key", "gemini_api_key", "default_provider", "default_model",
		"max_tokens", "temperature",
		"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
		"ollama_host", "dataset_size", "seed", "datasets_dir", "server_addr", "narration_concurrency",
	}
}

// Get returns the display value of key. Secrets are masked.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "api_key":
		return Mask(c.APIKey), nil
	case "gemini_api_key":
		return Mask(c.GeminiAPIKey), nil
	case "default_provider":
		return c.DefaultProvider, nil
	case "default_model":
		return c.DefaultModel, nil
	case "max_tokens":
		return strconv.Itoa(c.MaxTokens), nil
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'f', 3, 64), nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), nil
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), nil
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), nil
	case "ollama_host":
		return c.OllamaHost, nil
	case "dataset_size":
		return strconv.Itoa(c.DatasetSize), nil
	case "seed":
		return strconv.FormatInt(c.Seed, 10), nil
	case "datasets_dir":
		return c.DatasetsDir, nil
	case "server_addr":
		return c.ServerAddr, nil
	case "narration_concurrency":
		return strconv.Itoa(c.NarrationConcurrency), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set parses val into key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "gemini_api_key":
		c.GeminiAPIKey = val
	case "default_provider":
		switch strings.ToLower(val) {
		case "openrouter":
			c.DefaultProvider = "openrouter"
		case "gemini", "google":
			c.DefaultProvider = "gemini"
		case "ollama", "local":
			c.DefaultProvider = "ollama"
		default:
			return fmt.Errorf("invalid default_provider: %s (use gemini, openrouter or ollama)", val)
		}
	case "default_model":
		c.DefaultModel = val
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %q", val)
		}
		c.Temperature = f
	case "seed":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = n
	case "ollama_host":
		c.OllamaHost = val
	case "datasets_dir":
		c.DatasetsDir = val
	case "server_addr":
		c.ServerAddr = val
	default:
		p := c.intField(key)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid int for %s: %q", key, val)
		}
		if key == "dataset_size" && n == 0 {
			return fmt.Errorf("dataset_size must be positive")
		}
		*p = n
	}
	return nil
}

func (c *Global) intField(key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	case "dataset_size":
		return &c.DatasetSize
	case "narration_concurrency":
		return &c.NarrationConcurrency
	}
	return nil
}

// Mask hides all but the edges of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

// APIKeyFor returns the credential used by provider.
func (c *Global) APIKeyFor(provider string) string {
	if strings.EqualFold(provider, "gemini") {
		return c.GeminiAPIKey
	}
	return c.APIKey
}
