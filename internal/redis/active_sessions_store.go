package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates no cached entry for the plate.
var ErrCacheMiss = errors.New("active session cache miss")

// ActiveSession is the advisory cache entry for an open session. Postgres
// stays authoritative; this only short-circuits hot-path lookups.
type ActiveSession struct {
	SessionID int64     `json:"session_id"`
	Plate     string    `json:"plate"`
	EntryTime time.Time `json:"entry_time"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store manages the active session cache keyed by plate.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(plate string) string {
	return fmt.Sprintf("sessions:active:%s", plate)
}

// Save caches the open session for its plate.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.Plate), data, s.ttl).Err()
}

// Get returns cached session for a plate.
func (s *Store) Get(ctx context.Context, plate string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(plate)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached entry after a session closes.
func (s *Store) Delete(ctx context.Context, plate string) error {
	return s.client.Del(ctx, s.key(plate)).Err()
}
