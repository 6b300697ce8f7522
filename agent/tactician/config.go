package tactician

import "time"

// Config tunes the loop controller. Zero values fall back to the defaults
// below so partially filled configs stay usable.
type Config struct {
	// MaxToolCalls caps tool executions within one turn.
	MaxToolCalls int `envconfig:"MAX_TOOL_CALLS" split_words:"true" default:"6"`
	// ModelTimeout bounds one model stream, open to last frame.
	ModelTimeout time.Duration `envconfig:"MODEL_TIMEOUT" split_words:"true" default:"90s"`
	// ToolTimeout bounds one tool dispatch.
	ToolTimeout time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"15s"`
	// ChunkBuffer sizes the outbound chunk channel.
	ChunkBuffer int `envconfig:"CHUNK_BUFFER" split_words:"true" default:"16"`
}

func DefaultConfig() Config {
	return Config{
		MaxToolCalls: 6,
		ModelTimeout: 90 * time.Second,
		ToolTimeout:  15 * time.Second,
		ChunkBuffer:  16,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = def.MaxToolCalls
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = def.ModelTimeout
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = def.ToolTimeout
	}
	if c.ChunkBuffer <= 0 {
		c.ChunkBuffer = def.ChunkBuffer
	}
	return c
}
