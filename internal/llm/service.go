package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/tokens"
)

// Result is the outcome of a cleanup request.
type Result struct {
	Title    string
	Cleaned  string
	Provider string
	Model    string
}

// Service owns provider selection, credentials, and transcript
// cleanup. Providers are built lazily and cached until the selection or
// credential changes.
type Service struct {
	mu    sync.Mutex
	cfg   LLMConfig
	creds CredentialStore

	providers map[string]Provider
}

// NewService creates the cleanup service. cfg.Provider may be empty,
// in which case no cleanup happens until a provider is selected.
func NewService(cfg LLMConfig, creds CredentialStore) *Service {
	if cfg.Provider != "" && !KnownProvider(cfg.Provider) {
		L_warn("llm: configured provider is unknown, ignoring", "provider", cfg.Provider)
		cfg.Provider = ""
		cfg.Model = ""
	}
	return &Service{
		cfg:       cfg,
		creds:     creds,
		providers: make(map[string]Provider),
	}
}

// Config returns the current llm configuration for persistence.
func (s *Service) Config() LLMConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ActiveProvider returns the selected provider name, empty when none.
func (s *Service) ActiveProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Provider
}

// ActiveModel returns the effective model for the active provider.
func (s *Service) ActiveModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Model
}

// SelectProvider switches the active provider and resets the model to
// that provider's default.
func (s *Service) SelectProvider(name string) error {
	if !KnownProvider(name) {
		return fmt.Errorf("llm: unknown provider %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Provider = name
	s.cfg.Model = DefaultModelFor(name)

	L_info("llm: provider selected", "provider", name, "model", s.cfg.Model)
	return nil
}

// SelectModel sets the model for the active provider. Unknown model
// identifiers are accepted with a warning so newly released models can
// be used ahead of the built-in list.
func (s *Service) SelectModel(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Provider == "" {
		return fmt.Errorf("llm: no provider selected")
	}

	known := false
	for _, m := range ModelsFor(s.cfg.Provider) {
		if m == model {
			known = true
			break
		}
	}
	if !known {
		L_warn("llm: model not in known list, using anyway", "provider", s.cfg.Provider, "model", model)
	}

	s.cfg.Model = model
	return nil
}

// SetCustomWords replaces the custom vocabulary used in prompts.
func (s *Service) SetCustomWords(words []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.CustomWords = append([]string(nil), words...)
}

// CustomWords returns a copy of the custom vocabulary.
func (s *Service) CustomWords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cfg.CustomWords...)
}

// SetCredential stores or clears the API key for a provider. An empty
// value clears the stored key. Clearing an absent key is a no-op.
func (s *Service) SetCredential(provider string, apiKey string) error {
	if !KnownProvider(provider) {
		return fmt.Errorf("llm: unknown provider %q", provider)
	}
	if provider == ProviderOllama {
		return fmt.Errorf("llm: %s does not take an API key", provider)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.Set(CredentialKey(provider), apiKey); err != nil {
		return fmt.Errorf("llm: failed to store credential: %w", err)
	}

	// The cached client holds the old key.
	delete(s.providers, provider)

	if apiKey == "" {
		L_info("llm: credential cleared", "provider", provider)
	} else {
		L_info("llm: credential stored", "provider", provider)
	}
	return nil
}

// IsAvailable reports whether the active provider can accept a cleanup
// request right now.
func (s *Service) IsAvailable(ctx context.Context) bool {
	s.mu.Lock()
	name := s.cfg.Provider
	s.mu.Unlock()

	if name == "" {
		return false
	}

	p, err := s.provider(name)
	if err != nil {
		return false
	}

	ok, reason := p.Availability(ctx)
	if !ok {
		L_debug("llm: provider unavailable", "provider", name, "reason", reason)
	}
	return ok
}

// ProcessTranscript validates and cleans a raw transcript. Validation
// failures return typed errors so callers can message the user without
// burning an API request.
func (s *Service) ProcessTranscript(ctx context.Context, transcript string) (*Result, error) {
	s.mu.Lock()
	name := s.cfg.Provider
	model := s.cfg.Model
	customWords := append([]string(nil), s.cfg.CustomWords...)
	s.mu.Unlock()

	if name == "" {
		return nil, &UnavailableError{Provider: "llm", Reason: "no provider selected"}
	}

	// Length gates come first so a bad transcript is reported even when
	// no credential is configured.
	if err := ValidateTranscript(transcript, KindFor(name)); err != nil {
		return nil, err
	}

	p, err := s.provider(name)
	if err != nil {
		return nil, err
	}
	if model != "" && model != p.Model() {
		p = p.WithModel(model)
	}

	if ok, reason := p.Availability(ctx); !ok {
		return nil, &UnavailableError{Provider: name, Reason: reason}
	}

	prompt := BuildPrompt(transcript, customWords)

	L_info("llm: cleanup started",
		"provider", name,
		"model", p.Model(),
		"chars", len(transcript),
		"estTokens", tokens.Estimate(transcript))

	start := time.Now()
	response, err := p.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	title, cleaned := ParseResponse(response, time.Now())

	L_info("llm: cleanup completed",
		"provider", name,
		"model", p.Model(),
		"title", title,
		"duration", time.Since(start).Round(time.Millisecond))

	return &Result{
		Title:    title,
		Cleaned:  cleaned,
		Provider: name,
		Model:    p.Model(),
	}, nil
}

// ValidateTranscript applies the length gates for a provider kind.
func ValidateTranscript(transcript string, kind Kind) error {
	words := len(strings.Fields(transcript))
	if words < MinTranscriptWords {
		return &TranscriptTooShortError{Words: words}
	}

	maxChars := MaxTranscriptChars(kind)
	if len(transcript) > maxChars {
		return &TranscriptTooLongError{MaxChars: maxChars}
	}
	return nil
}

// provider returns the cached backend for name, building it if needed.
func (s *Service) provider(name string) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providerLocked(name)
}

func (s *Service) providerLocked(name string) (Provider, error) {
	if p, ok := s.providers[name]; ok {
		return p, nil
	}

	var apiKey string
	if name != ProviderOllama {
		apiKey, _ = s.creds.Get(CredentialKey(name))
	}

	p, err := newProvider(name, s.cfg, apiKey)
	if err != nil {
		return nil, err
	}
	s.providers[name] = p
	return p, nil
}
