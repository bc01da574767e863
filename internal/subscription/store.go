package subscription

import (
	"context"
	"fmt"
	"time"
)

// Repository is the persistence boundary for the subscription list.
// The Store writes the complete set after every mutation; the underlying
// storage is an opaque blob keyed by name (see internal/settings).
type Repository interface {
	LoadSubscriptions(ctx context.Context) ([]Subscription, error)
	SaveSubscriptions(ctx context.Context, subs []Subscription) error
}

// Store is the in-memory collection of subscriptions, synchronized to the
// repository after every mutation.
//
// Store is not safe for concurrent use. All access must happen on the
// engine's single-writer goroutine; callers on other goroutines receive
// clones, never live pointers.
type Store struct {
	repo Repository
	subs []*Subscription
}

// NewStore creates an empty store backed by repo.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Load replaces the in-memory set with the persisted one.
// Called once at startup. A missing blob yields an empty store.
func (s *Store) Load(ctx context.Context) error {
	subs, err := s.repo.LoadSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("loading subscriptions: %w", err)
	}

	s.subs = make([]*Subscription, 0, len(subs))
	for i := range subs {
		sub := subs[i]
		s.subs = append(s.subs, &sub)
	}
	return nil
}

// Add inserts a new subscription and persists the set.
// Returns ErrDuplicateID if the ID is already present, or ErrInvalid if
// required fields are missing.
func (s *Store) Add(ctx context.Context, sub *Subscription) error {
	if err := validate(sub); err != nil {
		return err
	}
	if s.indexOf(sub.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, sub.ID)
	}

	s.subs = append(s.subs, sub.Clone())
	return s.persist(ctx)
}

// Update replaces the stored subscription with the same ID and persists
// the set. Returns ErrNotFound if no such subscription exists.
func (s *Store) Update(ctx context.Context, sub *Subscription) error {
	if err := validate(sub); err != nil {
		return err
	}
	i := s.indexOf(sub.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sub.ID)
	}

	s.subs[i] = sub.Clone()
	return s.persist(ctx)
}

// Remove deletes the subscription with the given ID and persists the set.
// Returns ErrNotFound if no such subscription exists.
func (s *Store) Remove(ctx context.Context, id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.subs = append(s.subs[:i], s.subs[i+1:]...)
	return s.persist(ctx)
}

// Get returns a clone of the subscription with the given ID.
func (s *Store) Get(id string) (*Subscription, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.subs[i].Clone(), nil
}

// List returns clones of all subscriptions in insertion order.
func (s *Store) List() []*Subscription {
	out := make([]*Subscription, len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.Clone()
	}
	return out
}

// Len returns the number of subscriptions.
func (s *Store) Len() int {
	return len(s.subs)
}

// Match returns the subscriptions whose (accessory, characteristic) pair
// exactly equals the given pair. Comparison is case-sensitive.
//
// The returned pointers are the live store entries; they are only valid
// on the single-writer goroutine. Clone before handing off.
func (s *Store) Match(accessory, characteristic string) []*Subscription {
	var matched []*Subscription
	for _, sub := range s.subs {
		if sub.Accessory == accessory && sub.Characteristic == characteristic {
			matched = append(matched, sub)
		}
	}
	return matched
}

// RecordMatch sets LastMatch to ts, increments MatchCount, and persists
// the set. The match is
// recorded regardless of whether the subsequent publish attempt succeeds.
func (s *Store) RecordMatch(ctx context.Context, id string, ts time.Time) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	when := ts
	s.subs[i].LastMatch = &when
	s.subs[i].MatchCount++
	return s.persist(ctx)
}

// persist writes the full subscription set to the repository.
func (s *Store) persist(ctx context.Context) error {
	subs := make([]Subscription, len(s.subs))
	for i, sub := range s.subs {
		subs[i] = *sub.Clone()
	}
	if err := s.repo.SaveSubscriptions(ctx, subs); err != nil {
		return fmt.Errorf("saving subscriptions: %w", err)
	}
	return nil
}

// indexOf returns the index of the subscription with the given ID, or -1.
func (s *Store) indexOf(id string) int {
	for i, sub := range s.subs {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

// validate checks the hard requirements on a subscription record.
func validate(sub *Subscription) error {
	if sub == nil {
		return fmt.Errorf("%w: nil subscription", ErrInvalid)
	}
	if sub.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if sub.Accessory == "" {
		return fmt.Errorf("%w: accessory is required", ErrInvalid)
	}
	if sub.Characteristic == "" {
		return fmt.Errorf("%w: characteristic is required", ErrInvalid)
	}
	return nil
}
