// Package modelregistry is the Model Registry from spec.md §4.5 step 6 /
// SPEC_FULL.md §4.8.E: a lazily-populated, mutex-guarded cache of
// credentialed ModelHandles keyed by (provider, modelId).
package modelregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/personalagent/runtime/internal/config"
	"github.com/personalagent/runtime/internal/domain"
)

// ModelHandle is a bound, credentialed client for one (provider, modelId)
// pair. The concrete wire protocol per provider is out of scope
// (spec.md §1); Stream is the interface the Turn Pipeline consumes.
type ModelHandle interface {
	// Stream sends systemPrompt/userContent to the model and returns a
	// channel of ModelParts, closed when the model finishes or ctx is
	// cancelled. A send error surfaces as the channel closing with no
	// PartFinish having been sent; callers treat that as a failed call.
	Stream(ctx context.Context, systemPrompt, userContent string) (<-chan domain.ModelPart, error)
}

type key struct {
	provider string
	modelID  string
}

// Registry resolves and caches ModelHandles.
type Registry struct {
	cfg config.Config

	mu      sync.Mutex
	handles map[key]ModelHandle
}

// New constructs a Registry backed by cfg's provider/agent configuration.
func New(cfg config.Config) *Registry {
	return &Registry{cfg: cfg, handles: make(map[key]ModelHandle)}
}

// Resolve returns the cached ModelHandle for (provider, modelID),
// constructing and caching one on first use.
func (r *Registry) Resolve(ctx context.Context, provider, modelID string) (ModelHandle, error) {
	k := key{provider: provider, modelID: modelID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[k]; ok {
		return h, nil
	}

	providerCfg, ok := r.cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("modelregistry: no configuration for provider %q", provider)
	}
	apiKey := os.Getenv(providerCfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("modelregistry: %s is not set for provider %q", providerCfg.APIKeyEnv, provider)
	}

	client := fastshot.NewClient(providerBaseURL(provider)).
		Auth().BearerToken(apiKey).
		Config().SetTimeout(60 * time.Second).
		Build()

	handle := &httpModelHandle{client: client, modelID: modelID}
	r.handles[k] = handle
	return handle, nil
}

func providerBaseURL(provider string) string {
	switch provider {
	case "anthropic":
		return "https://api.anthropic.com"
	case "openai":
		return "https://api.openai.com"
	case "openrouter":
		return "https://openrouter.ai/api"
	case "google":
		return "https://generativelanguage.googleapis.com"
	default:
		return ""
	}
}

// httpModelHandle is a ModelHandle backed by an HTTP client built with
// fast-shot. Its Stream implementation issues one completion request and
// replays the response as a single text-delta part followed by Finish;
// providers' native streaming wire protocols are out of scope
// (spec.md §1) for this runtime.
type httpModelHandle struct {
	client  fastshot.ClientHttpMethods
	modelID string
}

// completionResponse is the minimal shape this runtime expects back from a
// provider adapter: a single assembled text reply plus output-token usage.
// Concrete per-provider response parsing is out of scope (spec.md §1).
type completionResponse struct {
	Text          string `json:"text"`
	OutputTokens  int64  `json:"outputTokens"`
}

func (h *httpModelHandle) Stream(ctx context.Context, systemPrompt, userContent string) (<-chan domain.ModelPart, error) {
	parts := make(chan domain.ModelPart, 4)

	go func() {
		defer close(parts)

		resp, err := h.client.POST("/v1/messages").
			Body().AsJSON(map[string]any{
			"model":  h.modelID,
			"system": systemPrompt,
			"input":  userContent,
		}).
			Send()
		if err != nil {
			return
		}

		body, err := resp.Body().AsString()
		if err != nil {
			return
		}

		var completion completionResponse
		if err := json.Unmarshal([]byte(body), &completion); err != nil {
			completion = completionResponse{Text: body}
		}

		select {
		case parts <- domain.ModelPart{Kind: domain.PartTextDelta, TextDelta: completion.Text}:
		case <-ctx.Done():
			return
		}
		select {
		case parts <- domain.ModelPart{Kind: domain.PartFinish, FinishReason: "stop", OutputTokens: completion.OutputTokens}:
		case <-ctx.Done():
		}
	}()

	return parts, nil
}
