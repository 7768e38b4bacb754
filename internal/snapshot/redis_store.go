// Package snapshot persists named review snapshots in Redis. A
// snapshot is the same payload the export endpoint produces; restoring
// one feeds the import path with identical validation.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is one saved snapshot.
type Record struct {
	Name    string          `json:"name"`
	DocID   string          `json:"doc_id"`
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// Meta describes a snapshot without its payload.
type Meta struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"savedAt"`
	Size    int       `json:"size"`
}

// RedisStore keeps one hash per document, field per snapshot name, with
// a rolling TTL on the whole hash.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "snapshot:",
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) key(docID string) string {
	return s.prefix + docID
}

// Save stores a snapshot under a name, overwriting any prior snapshot
// with the same name, and refreshes the document's TTL.
func (s *RedisStore) Save(ctx context.Context, docID, name string, payload []byte) error {
	record := Record{
		Name:    name,
		DocID:   docID,
		SavedAt: time.Now().UTC(),
		Payload: json.RawMessage(payload),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := s.key(docID)
	if err := s.client.HSet(ctx, key, name, data).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("set snapshot ttl: %w", err)
		}
	}
	return nil
}

// Load returns the payload of a named snapshot.
func (s *RedisStore) Load(ctx context.Context, docID, name string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.key(docID), name).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("snapshot %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return record.Payload, nil
}

// List returns snapshot metadata for a document, newest first.
func (s *RedisStore) List(ctx context.Context, docID string) ([]Meta, error) {
	fields, err := s.client.HGetAll(ctx, s.key(docID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	metas := make([]Meta, 0, len(fields))
	for _, data := range fields {
		var record Record
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}
		metas = append(metas, Meta{
			Name:    record.Name,
			SavedAt: record.SavedAt,
			Size:    len(record.Payload),
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].SavedAt.After(metas[j].SavedAt) })
	return metas, nil
}

// Delete removes a named snapshot. Deleting a missing one is not an error.
func (s *RedisStore) Delete(ctx context.Context, docID, name string) error {
	if err := s.client.HDel(ctx, s.key(docID), name).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
