package llm

import (
	"fmt"
	"strings"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/config"
)

type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIURL    string
	MaxTokens int
}

func LoadConfig() Config {
	return Config{
		Provider:  config.GetEnv("LLM_PROVIDER", "openai"),
		Model:     config.GetEnv("LLM_MODEL", ""),
		APIKey:    config.GetEnv("LLM_API_KEY", ""),
		APIURL:    config.GetEnv("LLM_API_URL", ""),
		MaxTokens: config.GetEnvInt("LLM_MAX_TOKENS", 0),
	}
}

// LoadConfigWithPrefix loads configuration from <PREFIX>_LLM_* env vars,
// falling back to their LLM_* counterparts when unset. Each oracle in the
// pipeline can point at its own provider and model this way.
func LoadConfigWithPrefix(prefix string) Config {
	p := strings.ToUpper(prefix) + "_"
	base := LoadConfig()
	return Config{
		Provider:  config.GetEnv(p+"LLM_PROVIDER", base.Provider),
		Model:     config.GetEnv(p+"LLM_MODEL", base.Model),
		APIKey:    config.GetEnv(p+"LLM_API_KEY", base.APIKey),
		APIURL:    config.GetEnv(p+"LLM_API_URL", base.APIURL),
		MaxTokens: config.GetEnvInt(p+"LLM_MAX_TOKENS", base.MaxTokens),
	}
}

func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
