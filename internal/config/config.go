package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "aks.toml"

type Config struct {
	Selection SelectionConfig `toml:"selection"`
	Budget    BudgetConfig    `toml:"budget"`
	Query     QueryConfig     `toml:"query"`
	LLM       LLMConfig       `toml:"llm"`
	Output    OutputConfig    `toml:"output"`
	Cache     CacheConfig     `toml:"cache"`
}

type SelectionConfig struct {
	DefaultExtensions []string `toml:"default_extensions"`
	IncludeHidden     bool     `toml:"include_hidden"`
}

type BudgetConfig struct {
	TokenLimit  int  `toml:"token_limit"`
	AutoConfirm bool `toml:"auto_confirm"`
}

type QueryConfig struct {
	HistoryLines int    `toml:"history_lines"`
	HistoryFile  string `toml:"history_file"`
}

type LLMConfig struct {
	Provider     string  `toml:"provider"`
	Model        string  `toml:"model"`
	APIKey       string  `toml:"api_key"`
	BaseURL      string  `toml:"base_url"`
	MaxTokens    int     `toml:"max_tokens"`
	Temperature  float64 `toml:"temperature"`
	SystemPrompt string  `toml:"system_prompt"`
}

type OutputConfig struct {
	ResponseFile string `toml:"response_file"`
}

type CacheConfig struct {
	Redis RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	TTLHours int    `toml:"ttl_hours"`
}

// Providers lists the dispatch backends understood by the llm package.
var Providers = []string{"xai", "openai", "ollama", "gemini"}

// Load reads path (DefaultPath when empty) over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Selection: SelectionConfig{
			DefaultExtensions: []string{".cpp", ".hpp", ".h", ".py"},
		},
		Budget: BudgetConfig{
			TokenLimit: 256000,
		},
		Query: QueryConfig{
			HistoryLines: 100,
		},
		LLM: LLMConfig{
			Provider:     "xai",
			Model:        "grok-code-fast-1",
			MaxTokens:    2000,
			Temperature:  0.7,
			SystemPrompt: "You are a helpful assistant. Analyze the provided codebase and respond to the user query.",
		},
		Output: OutputConfig{
			ResponseFile: "response.md",
		},
		Cache: CacheConfig{
			Redis: RedisConfig{
				Enabled:  false,
				URL:      "redis://localhost:6379/0",
				TTLHours: 24,
			},
		},
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AKS_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("AKS_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("AKS_TOKEN_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AKS_TOKEN_LIMIT %q: %w", v, err)
		}
		c.Budget.TokenLimit = n
	}
	if c.Query.HistoryFile == "" {
		c.Query.HistoryFile = defaultHistoryFile()
	}
	return nil
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// environment variable. Ollama needs none.
func (c *Config) ResolveAPIKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	switch c.LLM.Provider {
	case "xai":
		return os.Getenv("XAI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

func (c *Config) Validate() error {
	known := false
	for _, p := range Providers {
		if c.LLM.Provider == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown provider %q (want one of %s)", c.LLM.Provider, strings.Join(Providers, ", "))
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.Budget.TokenLimit <= 0 {
		return fmt.Errorf("budget.token_limit must be positive, got %d", c.Budget.TokenLimit)
	}
	if c.Query.HistoryLines <= 0 {
		return fmt.Errorf("query.history_lines must be positive, got %d", c.Query.HistoryLines)
	}
	if len(c.Selection.DefaultExtensions) == 0 {
		return fmt.Errorf("selection.default_extensions must not be empty")
	}
	for _, ext := range c.Selection.DefaultExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("default extension %q must start with '.'", ext)
		}
	}
	return nil
}

// Encode renders the config as TOML. The API key is never written out.
func (c *Config) Encode() ([]byte, error) {
	out := *c
	out.LLM.APIKey = ""

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Save(cfg *Config, path string) error {
	data, err := cfg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func defaultHistoryFile() string {
	if v := os.Getenv("HISTFILE"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bash_history"
	}
	return filepath.Join(home, ".bash_history")
}
