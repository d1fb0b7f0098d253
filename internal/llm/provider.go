package llm

import "context"

// Kind distinguishes on-device backends from cloud APIs. The transcript
// length ceiling depends on it.
type Kind string

const (
	KindOnDevice Kind = "on-device"
	KindCloud    Kind = "cloud"
)

// Transcript validation limits. Token counts are estimated with the
// standard 4 characters per token heuristic.
const (
	MinTranscriptWords = 3

	// On-device models run with a small context window. 3096 tokens
	// leaves room for the prompt scaffolding and the response.
	OnDeviceMaxTranscriptTokens = 3096

	// Cloud providers get a generous passthrough ceiling.
	CloudMaxTranscriptTokens = 30000

	// CharsPerToken converts the token ceilings into character counts.
	CharsPerToken = 4
)

// Provider is a single LLM backend capable of transcript cleanup.
type Provider interface {
	// Name is the stable provider identifier ("ollama", "anthropic", ...).
	Name() string

	// Kind reports whether the provider runs locally or in the cloud.
	Kind() Kind

	// Model returns the currently selected model identifier.
	Model() string

	// WithModel returns a copy of the provider using a different model.
	WithModel(model string) Provider

	// DefaultModel returns the model used when none is configured.
	DefaultModel() string

	// Models lists the model identifiers this provider exposes,
	// default first.
	Models() []string

	// RequiresAPIKey reports whether the provider needs a credential.
	RequiresAPIKey() bool

	// Availability checks whether the provider can accept requests
	// right now. A false result carries a human-readable reason.
	Availability(ctx context.Context) (bool, string)

	// Complete sends a cleanup request and returns the raw model
	// response text.
	Complete(ctx context.Context, system string, user string) (string, error)
}

// CredentialStore is the slice of the secret store the LLM layer needs.
type CredentialStore interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// CredentialKey returns the secret store key holding the API key for a
// provider.
func CredentialKey(provider string) string {
	return "llm." + provider + ".apiKey"
}

// KindFor returns the provider class for a provider name without
// constructing a backend. Only ollama runs on-device.
func KindFor(name string) Kind {
	if name == ProviderOllama {
		return KindOnDevice
	}
	return KindCloud
}

// MaxTranscriptChars returns the character ceiling for a provider kind.
func MaxTranscriptChars(kind Kind) int {
	if kind == KindOnDevice {
		return OnDeviceMaxTranscriptTokens * CharsPerToken
	}
	return CloudMaxTranscriptTokens * CharsPerToken
}
