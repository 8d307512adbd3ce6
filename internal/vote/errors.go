package vote

import "errors"

var (
	// ErrInteractionFailed is the kind shared by every refused vote.
	ErrInteractionFailed = errors.New("interaction failed")

	ErrAlreadyLiked    = &InteractionError{Reason: "already liked"}
	ErrAlreadyDisliked = &InteractionError{Reason: "already disliked"}
	ErrNoVote          = &InteractionError{Reason: "no vote to retract"}

	ErrEntityNotFound = errors.New("votable entity not found")
	ErrInvalidKind    = errors.New("invalid votable kind")
	ErrInvalidInput   = errors.New("entity id and user id are required")
)

// InteractionError is returned when a vote is refused because of the user's
// current vote state. It matches ErrInteractionFailed with errors.Is.
type InteractionError struct {
	Reason string
}

func (e *InteractionError) Error() string {
	return e.Reason
}

func (e *InteractionError) Is(target error) bool {
	return target == ErrInteractionFailed
}

// IsInteractionFailure reports whether err is a refused vote
func IsInteractionFailure(err error) bool {
	return errors.Is(err, ErrInteractionFailed)
}
