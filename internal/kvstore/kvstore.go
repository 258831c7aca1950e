// Package kvstore wraps Redis with the namespaced key scheme used for
// session state. Single-key operations only; callers own any cross-key
// consistency.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is the process-wide key/value client.
type Store struct {
	client *redis.Client
}

// NewWithClient wraps an existing client. The client is shared with the
// conversation log and the rate limiter, so its lifecycle belongs to the
// caller; the underlying connection is lazy and Ping verifies reachability
// at startup.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func key(ns, k string) string {
	return fmt.Sprintf("%s:%s", ns, k)
}

// Set writes a string value under a namespaced key. Values never expire;
// retention is out of this service's hands.
func (s *Store) Set(ctx context.Context, ns, k, value string) error {
	return s.client.Set(ctx, key(ns, k), value, 0).Err()
}

// Get reads a namespaced key. The second return is false when the key is
// absent, which upstream treats as "session not found".
func (s *Store) Get(ctx context.Context, ns, k string) (string, bool, error) {
	v, err := s.client.Get(ctx, key(ns, k)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetJSON marshals doc and stores it under a namespaced key.
func (s *Store) SetJSON(ctx context.Context, ns, k string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s:%s: %w", ns, k, err)
	}
	return s.client.Set(ctx, key(ns, k), raw, 0).Err()
}

// GetJSON reads and unmarshals a namespaced key into out. Returns false when
// the key is absent.
func (s *Store) GetJSON(ctx context.Context, ns, k string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, key(ns, k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("unmarshal %s:%s: %w", ns, k, err)
	}
	return true, nil
}

// SetJSONNX writes doc only if the key is absent. Returns true when this
// caller won the write. Concurrent deliveries of the same scheduled event
// race on exactly this call; the loser must re-read.
func (s *Store) SetJSONNX(ctx context.Context, ns, k string, doc any) (bool, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal %s:%s: %w", ns, k, err)
	}
	return s.client.SetNX(ctx, key(ns, k), raw, 0).Result()
}
