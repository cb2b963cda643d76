package agent

import "time"

// Default values for Config.
const (
	DefaultMaxRounds     = 10
	DefaultTokenBudget   = 0 // 0 means unlimited.
	DefaultTimeout       = 5 * time.Minute
	DefaultLoopThreshold = 3
)

// Config controls the behavior of the turn loop.
type Config struct {
	// MaxRounds caps the number of model requests per turn.
	MaxRounds int `yaml:"max_rounds"`

	// TokenBudget is the cumulative token limit (input + output) per turn.
	// Zero means unlimited.
	TokenBudget int `yaml:"token_budget"`

	// Timeout is the maximum wall-clock duration for one turn.
	Timeout time.Duration `yaml:"timeout"`

	// LoopThreshold is how many times the same tool call (name + input)
	// may repeat before the turn is considered stuck.
	LoopThreshold int `yaml:"loop_threshold"`
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LoopThreshold <= 0 {
		c.LoopThreshold = DefaultLoopThreshold
	}
	return c
}
