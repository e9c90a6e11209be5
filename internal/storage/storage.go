// Package storage defines the best-effort interaction audit log.
package storage

import (
	"context"
	"time"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
)

// Interaction is one proxied request, recorded after the response is written.
type Interaction struct {
	ID             string
	Endpoint       string
	Provider       domain.ProviderTag
	RequestedModel string
	ResolvedModel  string
	SessionID      string
	Status         int
	Duration       time.Duration
	Usage          *domain.Usage
	ErrorType      string
	ErrorCode      string
	ErrorMessage   string
	CreatedAt      time.Time
}

// ListOptions narrows ListInteractions results.
type ListOptions struct {
	Provider  domain.ProviderTag
	SessionID string
	Limit     int
}

// InteractionStore persists interaction records. Implementations must be safe
// for concurrent use; the server writes records off the request path and drops
// them on error rather than failing the response.
type InteractionStore interface {
	SaveInteraction(ctx context.Context, interaction *Interaction) error
	ListInteractions(ctx context.Context, opts ListOptions) ([]*Interaction, error)
	Close() error
}

// Nop discards every record. Used when storage.type is "none".
type Nop struct{}

func (Nop) SaveInteraction(context.Context, *Interaction) error { return nil }

func (Nop) ListInteractions(context.Context, ListOptions) ([]*Interaction, error) {
	return nil, nil
}

func (Nop) Close() error { return nil }
