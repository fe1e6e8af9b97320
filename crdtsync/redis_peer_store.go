package crdtsync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisPeerStore persists one State per peer in Redis, keyed under a
// configurable prefix, with a TTL refreshed on every write so a peer
// that disappears without closing cleanly eventually falls out of the
// registry. Grounded on the teacher's
// luvjson/crdtsync/redis_peer_discovery.go (RedisPeerDiscovery):
// same key-prefix/TTL/heartbeat shape, generalized from liveness-only
// peer registration to storing this engine's opaque State blob per
// peer.
type RedisPeerStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisPeerStore returns a peer state store backed by client, with
// keys namespaced under keyPrefix and entries expiring after ttl
// unless refreshed by a subsequent Save.
func NewRedisPeerStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisPeerStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisPeerStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisPeerStore) key(peerID string) string {
	return fmt.Sprintf("%s:sync-state:%s", s.keyPrefix, peerID)
}

// Save persists state for peerID, refreshing its TTL.
func (s *RedisPeerStore) Save(ctx context.Context, peerID string, state *State) error {
	if err := s.client.Set(ctx, s.key(peerID), state.Encode(), s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "crdtsync: save state for peer %s", peerID)
	}
	return nil
}

// Load retrieves the persisted state for peerID, returning a fresh
// NewState (not an error) if none has been saved yet.
func (s *RedisPeerStore) Load(ctx context.Context, peerID string) (*State, error) {
	data, err := s.client.Get(ctx, s.key(peerID)).Bytes()
	if err == redis.Nil {
		return NewState(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "crdtsync: load state for peer %s", peerID)
	}
	state, err := DecodeState(data)
	if err != nil {
		return nil, errors.Wrapf(err, "crdtsync: decode state for peer %s", peerID)
	}
	return state, nil
}

// Forget removes a peer's persisted state, e.g. once it is known to
// have disconnected for good.
func (s *RedisPeerStore) Forget(ctx context.Context, peerID string) error {
	if err := s.client.Del(ctx, s.key(peerID)).Err(); err != nil {
		return errors.Wrapf(err, "crdtsync: forget peer %s", peerID)
	}
	return nil
}

// Peers lists the peer ids with a currently live entry.
func (s *RedisPeerStore) Peers(ctx context.Context) ([]string, error) {
	pattern := fmt.Sprintf("%s:sync-state:*", s.keyPrefix)
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, errors.Wrap(err, "crdtsync: list peers")
	}
	prefixLen := len(s.keyPrefix) + len(":sync-state:")
	peers := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k) > prefixLen {
			peers = append(peers, k[prefixLen:])
		}
	}
	return peers, nil
}

// Refresh is a periodic heartbeat that re-saves peerID's state purely
// to extend its TTL, matching the teacher's heartbeat loop in
// RedisPeerDiscovery.heartbeat; callers typically run this from a
// ticker goroutine alongside an active sync session.
func (s *RedisPeerStore) Refresh(ctx context.Context, peerID string, state *State) {
	if err := s.Save(ctx, peerID, state); err != nil {
		log.Printf("crdtsync: heartbeat refresh failed for peer %s: %v", peerID, err)
	}
}
