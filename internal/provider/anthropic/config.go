package anthropic

// defaultModel is used when the config names none. Pinned to a dated
// release for reproducibility.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultContextWindow covers all Claude 3.x and 4.x models (200k tokens).
const defaultContextWindow = 200_000

const defaultMaxTokens = 8192

// Config holds the Anthropic provider settings.
type Config struct {
	APIKey        string   `yaml:"api_key"`
	Model         string   `yaml:"model"`
	BaseURL       string   `yaml:"base_url"`
	MaxTokens     int      `yaml:"max_tokens"`
	MaxRetries    int      `yaml:"max_retries"`
	ContextWindow int      `yaml:"context_window"`
	Temperature   *float64 `yaml:"temperature"`
}

// defaults fills zero-value fields.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

func (c *Config) contextWindow() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return defaultContextWindow
}
