package llm

import (
	"fmt"
	"strings"
	"time"

	openrouterx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/openrouter"
)

// Config selects and tunes the Tactician chat model. One model serves the
// whole loop; strategy output is large, so the completion budget defaults to
// the original prototype's 4096.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"4096"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("llm: openrouter api key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("llm: model is required")
	}
	if c.MaxCompletionToken <= 0 {
		return fmt.Errorf("llm: max completion tokens must be > 0, got %d", c.MaxCompletionToken)
	}
	return nil
}

// OpenRouter maps the config onto the openrouter builder.
func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
