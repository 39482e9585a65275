package conversation

import "time"

// Config carries the tunables of the turn pipeline. Credentials never live
// here; they are consumed when the LLMClient is built.
type Config struct {
	DefaultModel string

	ScopeTimeout      time.Duration
	SnapshotTimeout   time.Duration
	GenerationTimeout time.Duration

	GenerationTemperature float32
	GenerationMaxTokens   int32
	HistoryLimit          int
}

// DefaultConfig mirrors the production settings.
func DefaultConfig() Config {
	return Config{
		DefaultModel:          defaultOpenAIModel,
		ScopeTimeout:          10 * time.Second,
		SnapshotTimeout:       15 * time.Second,
		GenerationTimeout:     60 * time.Second,
		GenerationTemperature: 0.25,
		GenerationMaxTokens:   900,
		HistoryLimit:          16,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultModel == "" {
		c.DefaultModel = def.DefaultModel
	}
	if c.ScopeTimeout <= 0 {
		c.ScopeTimeout = def.ScopeTimeout
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = def.SnapshotTimeout
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = def.GenerationTimeout
	}
	if c.GenerationTemperature == 0 {
		c.GenerationTemperature = def.GenerationTemperature
	}
	if c.GenerationMaxTokens <= 0 {
		c.GenerationMaxTokens = def.GenerationMaxTokens
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	return c
}
