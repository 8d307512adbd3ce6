package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/inkwell/internal/vote"
)

// VoteSetStore keeps voter sets in Redis. It implements vote.SetStore.
type VoteSetStore struct {
	rc *RedisClient
}

var _ vote.SetStore = (*VoteSetStore)(nil)

// NewVoteSetStore creates a Redis backed voter set store
func NewVoteSetStore(rc *RedisClient) *VoteSetStore {
	return &VoteSetStore{rc: rc}
}

// Move runs SADD and SREM in one MULTI/EXEC so no other client observes the
// user in both sets or in neither.
func (s *VoteSetStore) Move(ctx context.Context, addKey, removeKey, member string) (bool, bool, error) {
	var added, removed *redis.IntCmd
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, addKey, member)
		removed = pipe.SRem(ctx, removeKey, member)
		return nil
	})
	if err != nil {
		return false, false, fmt.Errorf("move %s to %s: %w", member, addKey, err)
	}
	return added.Val() == 1, removed.Val() == 1, nil
}

// Withdraw runs both SREMs in one MULTI/EXEC
func (s *VoteSetStore) Withdraw(ctx context.Context, firstKey, secondKey, member string) (bool, bool, error) {
	var first, second *redis.IntCmd
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		first = pipe.SRem(ctx, firstKey, member)
		second = pipe.SRem(ctx, secondKey, member)
		return nil
	})
	if err != nil {
		return false, false, fmt.Errorf("withdraw %s: %w", member, err)
	}
	return first.Val() == 1, second.Val() == 1, nil
}

func (s *VoteSetStore) Add(ctx context.Context, key, member string) (bool, error) {
	n, err := s.rc.SAdd(ctx, key, member)
	return n == 1, err
}

func (s *VoteSetStore) Remove(ctx context.Context, key, member string) (bool, error) {
	n, err := s.rc.SRem(ctx, key, member)
	return n == 1, err
}

func (s *VoteSetStore) IsMember(ctx context.Context, key, member string) (bool, error) {
	return s.rc.SIsMember(ctx, key, member)
}

func (s *VoteSetStore) Card(ctx context.Context, key string) (int64, error) {
	return s.rc.SCard(ctx, key)
}

func (s *VoteSetStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rc.Del(ctx, keys...)
}
