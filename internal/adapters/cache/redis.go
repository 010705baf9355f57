// Package cache persists per-session tree and open-file snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/config"
	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

// RedisTreeStore implements core.TreeStore on a Redis client.
// Keys: "{sessionId}:structure" and "{sessionId}:activeFile:{path}".
// Values are JSON; no TTL, entries live until externally evicted.
type RedisTreeStore struct {
	rdb *redis.Client
}

func NewRedisTreeStore(cfg config.RedisConfig) *RedisTreeStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisTreeStore{rdb: rdb}
}

// NewRedisTreeStoreFromClient is used by tests.
func NewRedisTreeStoreFromClient(rdb *redis.Client) *RedisTreeStore {
	return &RedisTreeStore{rdb: rdb}
}

// Ping probes the cache at startup. A failure is logged, not fatal: the
// relay runs degraded (no replay/persistence) until the cache comes back.
func (s *RedisTreeStore) Ping(ctx context.Context) {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("module", "cache").Msg("redis unreachable, tree sync degraded")
		return
	}
	log.Info().Str("module", "cache").Msg("redis connected")
}

func (s *RedisTreeStore) Close() error { return s.rdb.Close() }

func structureKey(sid domain.SessionID) string {
	return fmt.Sprintf("%s:structure", sid)
}

func activeFileKey(sid domain.SessionID, path string) string {
	return fmt.Sprintf("%s:activeFile:%s", sid, path)
}

func (s *RedisTreeStore) PutTree(ctx context.Context, sid domain.SessionID, nodes []domain.TreeNode) error {
	b, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	return s.rdb.Set(ctx, structureKey(sid), b, 0).Err()
}

func (s *RedisTreeStore) GetTree(ctx context.Context, sid domain.SessionID) ([]domain.TreeNode, bool, error) {
	b, err := s.rdb.Get(ctx, structureKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var nodes []domain.TreeNode
	if err := json.Unmarshal(b, &nodes); err != nil {
		return nil, false, fmt.Errorf("unmarshal tree: %w", err)
	}
	return nodes, true, nil
}

func (s *RedisTreeStore) PutOpenFile(ctx context.Context, sid domain.SessionID, file domain.OpenFile) error {
	b, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal open file: %w", err)
	}
	return s.rdb.Set(ctx, activeFileKey(sid, file.Path), b, 0).Err()
}

func (s *RedisTreeStore) GetOpenFile(ctx context.Context, sid domain.SessionID, path string) (domain.OpenFile, bool, error) {
	var file domain.OpenFile
	b, err := s.rdb.Get(ctx, activeFileKey(sid, path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return file, false, nil
	}
	if err != nil {
		return file, false, err
	}
	if err := json.Unmarshal(b, &file); err != nil {
		return file, false, fmt.Errorf("unmarshal open file: %w", err)
	}
	return file, true, nil
}

var _ core.TreeStore = (*RedisTreeStore)(nil)
