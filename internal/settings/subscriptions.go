package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/hkbridge/internal/subscription"
)

// Subscriptions adapts the blob repository to subscription.Repository.
// The full subscription list is stored as a single JSON array blob.
type Subscriptions struct {
	repo Repository
}

// NewSubscriptions creates a typed view over repo.
func NewSubscriptions(repo Repository) *Subscriptions {
	return &Subscriptions{repo: repo}
}

// LoadSubscriptions returns the persisted subscription list, or an empty
// list if none has been saved yet.
func (s *Subscriptions) LoadSubscriptions(ctx context.Context) ([]subscription.Subscription, error) {
	blob, err := s.repo.Get(ctx, KeySubscriptions)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var subs []subscription.Subscription
	if err := json.Unmarshal(blob, &subs); err != nil {
		return nil, fmt.Errorf("decoding subscriptions: %w", err)
	}
	return subs, nil
}

// SaveSubscriptions persists the complete subscription list.
func (s *Subscriptions) SaveSubscriptions(ctx context.Context, subs []subscription.Subscription) error {
	blob, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("encoding subscriptions: %w", err)
	}
	return s.repo.Set(ctx, KeySubscriptions, blob)
}

// compile-time interface check
var _ subscription.Repository = (*Subscriptions)(nil)
