package store

import (
	"context"
	"errors"
	"time"
)

const selectionKey = "selection:"

// Selection remembers the town slug each session last looked at.
type Selection struct {
	kv  KV
	ttl time.Duration
}

func NewSelection(kv KV, ttl time.Duration) *Selection {
	return &Selection{kv: kv, ttl: ttl}
}

// Get returns the selected slug for session, or "" when none is stored.
func (s *Selection) Get(ctx context.Context, session string) (string, error) {
	slug, err := s.kv.Get(ctx, selectionKey+session)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return slug, err
}

// Set stores slug for session. An empty slug clears the selection.
func (s *Selection) Set(ctx context.Context, session, slug string) error {
	if slug == "" {
		return s.kv.Delete(ctx, selectionKey+session)
	}
	return s.kv.Set(ctx, selectionKey+session, slug, s.ttl)
}
