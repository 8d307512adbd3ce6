package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/zfogg/inkwell/internal/vote"
	"gorm.io/gorm"
)

// CounterRepository stores vote counters on the entity rows. It implements
// vote.CounterStore.
type CounterRepository struct {
	db *gorm.DB
}

var _ vote.CounterStore = (*CounterRepository)(nil)

// NewCounterRepository creates a counter repository
func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Tally reads both counters of an entity
func (r *CounterRepository) Tally(ctx context.Context, kind vote.Kind, id string) (vote.Tally, error) {
	return readTally(r.db.WithContext(ctx), kind, id)
}

// Adjust applies the deltas with a single UPDATE so concurrent votes never
// overwrite each other, then reads the result inside the same transaction.
func (r *CounterRepository) Adjust(ctx context.Context, kind vote.Kind, id string, likeDelta, dislikeDelta int64) (vote.Tally, error) {
	if !kind.Valid() {
		return vote.Tally{}, vote.ErrInvalidKind
	}

	var tally vote.Tally
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if likeDelta != 0 {
			updates["like_count"] = clampedAdd("like_count", likeDelta)
		}
		if dislikeDelta != 0 {
			updates["dislike_count"] = clampedAdd("dislike_count", dislikeDelta)
		}

		if len(updates) > 0 {
			// Zero affected rows is not proof of a missing row: MySQL without
			// clientFoundRows reports a clamped no-op as unchanged. The read
			// below tells the two apart.
			if err := tx.Table(kind.Table()).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		var err error
		tally, err = readTally(tx, kind, id)
		return err
	})
	if err != nil {
		return vote.Tally{}, err
	}
	return tally, nil
}

// Overwrite replaces both counters, used when reconciling with the voter sets
func (r *CounterRepository) Overwrite(ctx context.Context, kind vote.Kind, id string, tally vote.Tally) error {
	if !kind.Valid() {
		return vote.ErrInvalidKind
	}
	if tally.LikeCount < 0 || tally.DislikeCount < 0 {
		return ErrInvalidInput
	}

	res := r.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Updates(map[string]interface{}{
		"like_count":    tally.LikeCount,
		"dislike_count": tally.DislikeCount,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Writing the values the row already holds also affects zero rows on MySQL
		_, err := readTally(r.db.WithContext(ctx), kind, id)
		return err
	}
	return nil
}

// clampedAdd works on postgres, mysql and sqlite alike, unlike GREATEST.
func clampedAdd(column string, delta int64) interface{} {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
}

func readTally(db *gorm.DB, kind vote.Kind, id string) (vote.Tally, error) {
	if !kind.Valid() {
		return vote.Tally{}, vote.ErrInvalidKind
	}

	var tally vote.Tally
	err := db.Table(kind.Table()).
		Select("like_count", "dislike_count").
		Where("id = ?", id).
		Take(&tally).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return vote.Tally{}, vote.ErrEntityNotFound
	}
	if err != nil {
		return vote.Tally{}, err
	}
	return tally, nil
}
