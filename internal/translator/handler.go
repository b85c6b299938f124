package translator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/MimeLyc/srt-editor/pkg/log"
)

// Handler validates translation requests and forwards them to a Provider.
// It is safe for concurrent use; every call works on its own request.
type Handler struct {
	provider Provider
	cache    Cache

	mu    sync.RWMutex
	model ModelRef
	// verified holds digests of credentials the provider has accepted.
	verified map[string]struct{}
}

type HandlerOption func(*Handler)

// WithCache stores successful raw responses and serves repeats from them.
// A hit is only served to a credential the provider has already accepted;
// any other credential goes to the provider first.
func WithCache(cache Cache) HandlerOption {
	return func(h *Handler) {
		h.cache = cache
	}
}

func NewHandler(provider Provider, model ModelRef, opts ...HandlerOption) *Handler {
	h := &Handler{
		provider: provider,
		model:    model,
		verified: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Model() ModelRef {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model
}

// SetModel switches the model used by subsequent calls.
func (h *Handler) SetModel(model ModelRef) {
	h.mu.Lock()
	h.model = model
	h.mu.Unlock()
}

// Translate builds the instruction for req and returns the model's response
// verbatim. Field and credential checks happen before any provider call.
func (h *Handler) Translate(ctx context.Context, req Request, credential string) (string, error) {
	prompt, err := BuildRequest(req)
	if err != nil {
		return "", err
	}
	return h.Invoke(ctx, prompt, credential)
}

// Invoke sends a prepared prompt to the provider. There is no retry.
func (h *Handler) Invoke(ctx context.Context, prompt string, credential string) (string, error) {
	if prompt == "" {
		return "", NewError(ErrInvalidRequest, "missing prompt")
	}
	if strings.TrimSpace(credential) == "" {
		return "", NewError(ErrAuthentication, "missing API key")
	}

	model := h.Model()
	key := CacheKey(model, prompt)
	digest := credentialDigest(credential)

	if h.cache != nil && h.isVerified(digest) {
		if text, ok, err := h.cache.Get(ctx, key); err != nil {
			log.Warn("translation cache lookup failed: %v", err)
		} else if ok {
			log.Debug("translation cache hit for %s", model)
			return text, nil
		}
	}

	text, err := h.provider.Complete(ctx, prompt, model, credential)
	if err != nil {
		if errors.Is(err, ErrCredentialRejected) {
			h.setVerified(digest, false)
			return "", WrapError(err, ErrAuthentication, "provider rejected API key").
				WithContext("model", model.String())
		}
		return "", WrapError(err, ErrProvider, "completion failed").
			WithContext("model", model.String())
	}

	h.setVerified(digest, true)
	if h.cache != nil {
		if err := h.cache.Put(ctx, key, model.String(), text); err != nil {
			log.Warn("translation cache store failed: %v", err)
		}
	}

	return text, nil
}

func (h *Handler) isVerified(digest string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.verified[digest]
	return ok
}

func (h *Handler) setVerified(digest string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ok {
		h.verified[digest] = struct{}{}
		return
	}
	delete(h.verified, digest)
}

func credentialDigest(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// CacheKey derives a stable key for a model and prompt pair.
func CacheKey(model ModelRef, prompt string) string {
	sum := sha256.Sum256([]byte(model.String() + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
