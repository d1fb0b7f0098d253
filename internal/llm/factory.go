package llm

import "fmt"

// newProvider constructs a backend by name. Cloud backends need the
// apiKey, the on-device backend ignores it.
func newProvider(name string, cfg LLMConfig, apiKey string) (Provider, error) {
	switch name {
	case ProviderOllama:
		return NewOllamaProvider(cfg.Ollama.URL), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey)
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey)
	case ProviderXAI:
		return NewXAIProvider(apiKey)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
}
