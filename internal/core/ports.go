package core

import (
	"context"
)

// ModelRequest is what the model invoker sends upstream
type ModelRequest struct {
	Prompt string
	// Schema is an optional structured-output contract. Providers that
	// cannot enforce it ignore it.
	Schema *Schema
}

// ModelResponse is the raw text returned by the model
type ModelResponse struct {
	Text  string
	Model string
	ID    string
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Generate sends the prompt and returns the raw response text. Failures
	// are reported as a *ModelError of kind ErrModelUnavailable,
	// ErrModelTimeout or ErrModelRefused.
	Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}

// CacheRepository defines the interface for memoizing analysis results
type CacheRepository interface {
	// Get retrieves a live cache entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// CatalogSource loads the reference catalog
type CatalogSource interface {
	Load(ctx context.Context) ([]CatalogItem, error)
}

// NotificationSender delivers high-risk alerts. Delivery is best effort.
type NotificationSender interface {
	Send(ctx context.Context, n *Notification) error
}
