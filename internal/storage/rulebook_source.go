package storage

import "context"

// RulebookSource serves the rulebook catalog from the object store.
type RulebookSource struct {
	store ObjectStore
	key   string
}

func NewRulebookSource(store ObjectStore, key string) *RulebookSource {
	return &RulebookSource{store: store, key: key}
}

func (s *RulebookSource) FetchRulebook(ctx context.Context) ([]byte, error) {
	return s.store.Get(ctx, s.key)
}
