package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMock   = "mock"
	BackendOpenAI = "openai"

	SourceFixture = "fixture"
	SourceJourney = "journey"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	AssistantBackend   string        `mapstructure:"ASSISTANT_BACKEND"`
	PatientSource      string        `mapstructure:"PATIENT_SOURCE"`
	OpenAIAPIKey       string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIChatModel    string        `mapstructure:"OPENAI_MODEL_CHAT"`
	OpenAISummaryModel string        `mapstructure:"OPENAI_MODEL_SUMMARY"`
	AnalysisDelay      time.Duration `mapstructure:"ANALYSIS_DELAY"`
	ReplyDelay         time.Duration `mapstructure:"REPLY_DELAY"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	SweepInterval      time.Duration `mapstructure:"SWEEP_INTERVAL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ASSISTANT_BACKEND", BackendMock)
	v.SetDefault("PATIENT_SOURCE", SourceFixture)
	v.SetDefault("OPENAI_MODEL_CHAT", "gpt-4o-mini")
	v.SetDefault("ANALYSIS_DELAY", "3s")
	v.SetDefault("REPLY_DELAY", "2s")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SWEEP_INTERVAL", "1m")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "ASSISTANT_BACKEND", "PATIENT_SOURCE",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL_CHAT", "OPENAI_MODEL_SUMMARY",
		"ANALYSIS_DELAY", "REPLY_DELAY", "SESSION_TTL", "SWEEP_INTERVAL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.OpenAISummaryModel == "" {
		cfg.OpenAISummaryModel = cfg.OpenAIChatModel
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UseOpenAI reports whether the reply and analysis collaborators should call
// the OpenAI API instead of the fixed mocks.
func (c *Config) UseOpenAI() bool {
	return c.AssistantBackend == BackendOpenAI
}

// Validate checks that the configuration is usable.  The OpenAI backend
// requires an API key; delays must not be negative.
func (c *Config) Validate() error {
	switch c.AssistantBackend {
	case BackendMock:
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when ASSISTANT_BACKEND is %q", BackendOpenAI)
		}
	default:
		return fmt.Errorf("ASSISTANT_BACKEND must be %q or %q, got %q", BackendMock, BackendOpenAI, c.AssistantBackend)
	}
	switch c.PatientSource {
	case "", SourceFixture, SourceJourney:
	default:
		return fmt.Errorf("PATIENT_SOURCE must be %q or %q, got %q", SourceFixture, SourceJourney, c.PatientSource)
	}
	if c.AnalysisDelay < 0 {
		return fmt.Errorf("ANALYSIS_DELAY must not be negative, got %s", c.AnalysisDelay)
	}
	if c.ReplyDelay < 0 {
		return fmt.Errorf("REPLY_DELAY must not be negative, got %s", c.ReplyDelay)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	return nil
}
