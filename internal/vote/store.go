package vote

import "context"

// Tally is the pair of denormalized counters stored on a votable entity
type Tally struct {
	LikeCount    int64 `json:"like_count"`
	DislikeCount int64 `json:"dislike_count"`
}

// SetStore keeps the per-entity sets of voters
type SetStore interface {
	// Move adds member to the set at addKey and removes it from the set at
	// removeKey as one atomic step.
	Move(ctx context.Context, addKey, removeKey, member string) (added bool, removed bool, err error)
	// Withdraw removes member from both sets as one atomic step.
	Withdraw(ctx context.Context, firstKey, secondKey, member string) (fromFirst bool, fromSecond bool, err error)
	Add(ctx context.Context, key, member string) (bool, error)
	Remove(ctx context.Context, key, member string) (bool, error)
	IsMember(ctx context.Context, key, member string) (bool, error)
	Card(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// CounterStore persists the denormalized counters on the entity record
type CounterStore interface {
	Tally(ctx context.Context, kind Kind, id string) (Tally, error)
	// Adjust applies both deltas in one atomic update. Counters never go
	// below zero. Returns ErrEntityNotFound when no row matches.
	Adjust(ctx context.Context, kind Kind, id string, likeDelta, dislikeDelta int64) (Tally, error)
	Overwrite(ctx context.Context, kind Kind, id string, tally Tally) error
}
