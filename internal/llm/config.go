package llm

// LLMConfig is the llm section of the application config.
type LLMConfig struct {
	// Provider is the active provider name. Empty means cleanup is
	// skipped and raw transcripts are used as-is.
	Provider string `json:"provider,omitempty"`

	// Model overrides the active provider's default model.
	Model string `json:"model,omitempty"`

	// CustomWords are domain terms passed to the cleanup prompt so the
	// model can fix near-miss transcriptions.
	CustomWords []string `json:"customWords,omitempty"`

	Ollama OllamaConfig `json:"ollama,omitempty"`
}

// OllamaConfig configures the on-device backend.
type OllamaConfig struct {
	// URL of the Ollama daemon. Defaults to http://localhost:11434.
	URL string `json:"url,omitempty"`
}

// DefaultLLMConfig returns the llm defaults. No provider is active until
// the user picks one.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{}
}

// ProviderNames lists the known provider identifiers, on-device first.
func ProviderNames() []string {
	return []string{ProviderOllama, ProviderAnthropic, ProviderOpenAI, ProviderXAI}
}

// DefaultModelFor returns the default model for a provider name, or
// empty for an unknown provider.
func DefaultModelFor(name string) string {
	switch name {
	case ProviderOllama:
		return ollamaModels[0]
	case ProviderAnthropic:
		return anthropicModels[0]
	case ProviderOpenAI:
		return openaiModels[0]
	case ProviderXAI:
		return xaiModels[0]
	}
	return ""
}

// ModelsFor returns the known model list for a provider name.
func ModelsFor(name string) []string {
	switch name {
	case ProviderOllama:
		return append([]string(nil), ollamaModels...)
	case ProviderAnthropic:
		return append([]string(nil), anthropicModels...)
	case ProviderOpenAI:
		return append([]string(nil), openaiModels...)
	case ProviderXAI:
		return append([]string(nil), xaiModels...)
	}
	return nil
}

// KnownProvider reports whether name is a recognized provider.
func KnownProvider(name string) bool {
	for _, n := range ProviderNames() {
		if n == name {
			return true
		}
	}
	return false
}
