package translator

import (
	"context"
	"strings"
)

// Request carries one cue and its optional context.
type Request struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	FullDocument   string `json:"fullSrt,omitempty"`
	StartTime      string `json:"startTime,omitempty"`
	EndTime        string `json:"endTime,omitempty"`
}

// Validate rejects requests missing cue text or target language.
// Whitespace-only text is still text and is accepted.
func (r Request) Validate() error {
	if r.Text == "" {
		return NewError(ErrInvalidRequest, "missing text")
	}
	if strings.TrimSpace(r.TargetLanguage) == "" {
		return NewError(ErrInvalidRequest, "missing targetLanguage")
	}
	return nil
}

// ModelRef identifies a completion model abstractly.
type ModelRef struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (m ModelRef) String() string {
	if m.Provider == "" {
		return m.Model
	}
	return m.Provider + "/" + m.Model
}

// Provider is a text-completion capability.
// Implementations wrap ErrCredentialRejected when the credential is refused.
type Provider interface {
	Complete(ctx context.Context, prompt string, model ModelRef, credential string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt string, model ModelRef, credential string) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, prompt string, model ModelRef, credential string) (string, error) {
	return f(ctx, prompt, model, credential)
}

// Cache stores raw provider responses keyed by model and prompt.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key string, model string, value string) error
}
