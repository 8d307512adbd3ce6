package vote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Choice is a user's current vote on an entity
type Choice string

const (
	ChoiceNone    Choice = "none"
	ChoiceLike    Choice = "like"
	ChoiceDislike Choice = "dislike"
)

const compensationTimeout = 5 * time.Second

// Ledger applies like and dislike votes for every votable kind. Voter sets live
// in the SetStore; counters are adjusted atomically in the CounterStore and
// the set mutation is undone when the counter update fails.
type Ledger struct {
	sets     SetStore
	counters CounterStore
	tracer   trace.Tracer
	metrics  *metrics.Metrics
}

// NewLedger creates a ledger over the given stores
func NewLedger(sets SetStore, counters CounterStore) *Ledger {
	return &Ledger{
		sets:     sets,
		counters: counters,
		tracer:   otel.Tracer("inkwell/vote"),
		metrics:  metrics.Get(),
	}
}

// Like records a like from userID. If the user had disliked the entity the
// dislike is withdrawn first. Liking twice returns ErrAlreadyLiked.
func (l *Ledger) Like(ctx context.Context, kind Kind, entityID, userID string) (Tally, error) {
	return l.cast(ctx, kind, entityID, userID, ChoiceLike)
}

// Dislike is the mirror of Like
func (l *Ledger) Dislike(ctx context.Context, kind Kind, entityID, userID string) (Tally, error) {
	return l.cast(ctx, kind, entityID, userID, ChoiceDislike)
}

func (l *Ledger) cast(ctx context.Context, kind Kind, entityID, userID string, choice Choice) (tally Tally, err error) {
	if err := validate(kind, entityID, userID); err != nil {
		return Tally{}, err
	}

	ctx, finish := l.observe(ctx, string(choice), kind, entityID, userID)
	defer func() { finish(err) }()

	addKey, removeKey := LikesKey(kind, entityID), DislikesKey(kind, entityID)
	refusal := ErrAlreadyLiked
	if choice == ChoiceDislike {
		addKey, removeKey = removeKey, addKey
		refusal = ErrAlreadyDisliked
	}

	added, removed, err := l.sets.Move(ctx, addKey, removeKey, userID)
	if err != nil {
		return Tally{}, fmt.Errorf("update vote sets: %w", err)
	}

	if !added && !removed {
		return Tally{}, refusal
	}

	var forward, opposite int64
	if added {
		forward = 1
	}
	if removed {
		opposite = -1
	}
	likeDelta, dislikeDelta := forward, opposite
	if choice == ChoiceDislike {
		likeDelta, dislikeDelta = opposite, forward
	}

	tally, err = l.counters.Adjust(ctx, kind, entityID, likeDelta, dislikeDelta)
	if err != nil {
		err = fmt.Errorf("persist vote counters: %w", err)
		var undo []func(context.Context) error
		if added {
			undo = append(undo, func(ctx context.Context) error {
				_, err := l.sets.Remove(ctx, addKey, userID)
				return err
			})
		}
		if removed {
			undo = append(undo, func(ctx context.Context) error {
				_, err := l.sets.Add(ctx, removeKey, userID)
				return err
			})
		}
		return Tally{}, multierr.Append(err, l.compensate(ctx, kind, entityID, undo))
	}

	// The user was in both sets. The stale dislike is gone and counted for,
	// but the like itself was already recorded.
	if !added {
		return tally, refusal
	}

	return tally, nil
}

// Retract withdraws whatever vote userID has on the entity. Returns ErrNoVote
// when the user has not voted.
func (l *Ledger) Retract(ctx context.Context, kind Kind, entityID, userID string) (tally Tally, err error) {
	if err := validate(kind, entityID, userID); err != nil {
		return Tally{}, err
	}

	ctx, finish := l.observe(ctx, "retract", kind, entityID, userID)
	defer func() { finish(err) }()

	likesKey, dislikesKey := LikesKey(kind, entityID), DislikesKey(kind, entityID)

	unliked, undisliked, err := l.sets.Withdraw(ctx, likesKey, dislikesKey, userID)
	if err != nil {
		return Tally{}, fmt.Errorf("update vote sets: %w", err)
	}

	if !unliked && !undisliked {
		return Tally{}, ErrNoVote
	}

	var likeDelta, dislikeDelta int64
	var undo []func(context.Context) error
	if unliked {
		likeDelta = -1
		undo = append(undo, func(ctx context.Context) error {
			_, err := l.sets.Add(ctx, likesKey, userID)
			return err
		})
	}
	if undisliked {
		dislikeDelta = -1
		undo = append(undo, func(ctx context.Context) error {
			_, err := l.sets.Add(ctx, dislikesKey, userID)
			return err
		})
	}

	tally, err = l.counters.Adjust(ctx, kind, entityID, likeDelta, dislikeDelta)
	if err != nil {
		err = fmt.Errorf("persist vote counters: %w", err)
		return Tally{}, multierr.Append(err, l.compensate(ctx, kind, entityID, undo))
	}
	return tally, nil
}

// Counts returns the persisted counters of an entity
func (l *Ledger) Counts(ctx context.Context, kind Kind, entityID string) (Tally, error) {
	if !kind.Valid() {
		return Tally{}, ErrInvalidKind
	}
	return l.counters.Tally(ctx, kind, entityID)
}

// Status returns userID's current vote on the entity
func (l *Ledger) Status(ctx context.Context, kind Kind, entityID, userID string) (Choice, error) {
	if err := validate(kind, entityID, userID); err != nil {
		return ChoiceNone, err
	}

	liked, err := l.sets.IsMember(ctx, LikesKey(kind, entityID), userID)
	if err != nil {
		return ChoiceNone, fmt.Errorf("check likes: %w", err)
	}
	if liked {
		return ChoiceLike, nil
	}

	disliked, err := l.sets.IsMember(ctx, DislikesKey(kind, entityID), userID)
	if err != nil {
		return ChoiceNone, fmt.Errorf("check dislikes: %w", err)
	}
	if disliked {
		return ChoiceDislike, nil
	}
	return ChoiceNone, nil
}

// Snapshot compares the persisted counters with the voter sets
type Snapshot struct {
	Tally     Tally `json:"tally"`
	Likers    int64 `json:"likers"`
	Dislikers int64 `json:"dislikers"`
}

// Drifted reports whether the counters disagree with the set sizes
func (s Snapshot) Drifted() bool {
	return s.Tally.LikeCount != s.Likers || s.Tally.DislikeCount != s.Dislikers
}

// Inspect reads counters and set cardinalities of an entity
func (l *Ledger) Inspect(ctx context.Context, kind Kind, entityID string) (Snapshot, error) {
	if !kind.Valid() {
		return Snapshot{}, ErrInvalidKind
	}

	tally, err := l.counters.Tally(ctx, kind, entityID)
	if err != nil {
		return Snapshot{}, err
	}
	likers, err := l.sets.Card(ctx, LikesKey(kind, entityID))
	if err != nil {
		return Snapshot{}, fmt.Errorf("count likes: %w", err)
	}
	dislikers, err := l.sets.Card(ctx, DislikesKey(kind, entityID))
	if err != nil {
		return Snapshot{}, fmt.Errorf("count dislikes: %w", err)
	}

	return Snapshot{Tally: tally, Likers: likers, Dislikers: dislikers}, nil
}

// Reconcile rewrites the counters from the voter set sizes when they drifted.
// Returns the snapshot taken before any change.
func (l *Ledger) Reconcile(ctx context.Context, kind Kind, entityID string) (Snapshot, error) {
	snap, err := l.Inspect(ctx, kind, entityID)
	if err != nil {
		return Snapshot{}, err
	}

	if !snap.Drifted() {
		l.metrics.VoteReconcileTotal.WithLabelValues(kind.String(), "false").Inc()
		return snap, nil
	}

	fixed := Tally{LikeCount: snap.Likers, DislikeCount: snap.Dislikers}
	if err := l.counters.Overwrite(ctx, kind, entityID, fixed); err != nil {
		return snap, fmt.Errorf("overwrite counters: %w", err)
	}

	l.metrics.VoteReconcileTotal.WithLabelValues(kind.String(), "true").Inc()
	logger.Log.Warn("Vote counters drifted from voter sets",
		logger.WithEntity(kind.String(), entityID),
		zap.Int64("like_count", snap.Tally.LikeCount),
		zap.Int64("likers", snap.Likers),
		zap.Int64("dislike_count", snap.Tally.DislikeCount),
		zap.Int64("dislikers", snap.Dislikers),
	)
	return snap, nil
}

// Forget deletes the voter sets of the given entities
func (l *Ledger) Forget(ctx context.Context, refs ...Ref) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(refs)*2)
	for _, ref := range refs {
		keys = append(keys, Keys(ref.Kind, ref.ID)...)
	}
	if err := l.sets.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("delete vote sets: %w", err)
	}
	return nil
}

// compensate runs the undo steps on a context that survives cancellation of
// the request, so a client disconnect cannot leave the sets half updated.
func (l *Ledger) compensate(ctx context.Context, kind Kind, entityID string, undo []func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs error
	for _, step := range undo {
		errs = multierr.Append(errs, step(ctx))
	}

	if errs != nil {
		l.metrics.VoteCompensationsTotal.WithLabelValues(kind.String(), "failed").Inc()
		logger.Log.Error("Failed to undo vote set mutation",
			logger.WithEntity(kind.String(), entityID),
			zap.Error(errs),
		)
		return fmt.Errorf("undo vote sets: %w", errs)
	}

	l.metrics.VoteCompensationsTotal.WithLabelValues(kind.String(), "success").Inc()
	return nil
}

func (l *Ledger) observe(ctx context.Context, op string, kind Kind, entityID, userID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "vote."+op, trace.WithAttributes(
		attribute.String("vote.kind", kind.String()),
		attribute.String("vote.entity_id", entityID),
		attribute.String("vote.user_id", userID),
	))

	return ctx, func(err error) {
		outcome := "success"
		switch {
		case err == nil:
		case IsInteractionFailure(err):
			outcome = "refused"
		case errors.Is(err, ErrEntityNotFound):
			outcome = "not_found"
		default:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Log.Error("Vote operation failed",
				logger.WithEntity(kind.String(), entityID),
				logger.WithUserID(userID),
				zap.String("operation", op),
				zap.Error(err),
			)
		}
		span.SetAttributes(attribute.String("vote.outcome", outcome))
		span.End()

		l.metrics.VoteOperationsTotal.WithLabelValues(kind.String(), op, outcome).Inc()
		l.metrics.VoteOperationDuration.WithLabelValues(kind.String(), op).Observe(time.Since(start).Seconds())
	}
}

func validate(kind Kind, entityID, userID string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if entityID == "" || userID == "" {
		return ErrInvalidInput
	}
	return nil
}
