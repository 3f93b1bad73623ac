package llm

import (
	"strings"
	"time"

	openrouterx "github.com/tanpawarit/pawsome-voice-agent/pkg/openrouter"
)

// Config drives the simulated agent model.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1" validate:"required,url"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true" validate:"required"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true" validate:"required"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000" validate:"gt=0"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7" validate:"gte=0,lte=2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// AgentModel overrides Model for the agent persona only.
	AgentModel string `envconfig:"AGENT_MODEL" split_words:"true"`
}

func (c Config) OpenRouter() openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.AgentModel); v != "" {
		modelName = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
