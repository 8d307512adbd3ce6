package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/util"
	"github.com/zfogg/inkwell/internal/vote"
)

// VoteResponse is returned by every vote endpoint
type VoteResponse struct {
	Kind   vote.Kind   `json:"kind"`
	ID     string      `json:"id"`
	Status vote.Choice `json:"status,omitempty"`
	vote.Tally
}

type voteFunc func(ctx context.Context, kind vote.Kind, entityID, userID string) (vote.Tally, error)

// Like records a like on an entity of the given kind
// POST /api/v1/{kind}/:id/like
func (h *Handlers) Like(kind vote.Kind) gin.HandlerFunc {
	return h.vote(kind, vote.ChoiceLike, h.ledger.Like)
}

// Dislike records a dislike on an entity of the given kind
// POST /api/v1/{kind}/:id/dislike
func (h *Handlers) Dislike(kind vote.Kind) gin.HandlerFunc {
	return h.vote(kind, vote.ChoiceDislike, h.ledger.Dislike)
}

// RetractVote withdraws the caller's vote
// DELETE /api/v1/{kind}/:id/vote
func (h *Handlers) RetractVote(kind vote.Kind) gin.HandlerFunc {
	return h.vote(kind, vote.ChoiceNone, h.ledger.Retract)
}

func (h *Handlers) vote(kind vote.Kind, result vote.Choice, apply voteFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			return
		}
		entityID := c.Param("id")

		tally, err := apply(c.Request.Context(), kind, entityID, userID)
		if err != nil {
			util.RespondWithError(c, err, kind.String())
			return
		}

		c.JSON(http.StatusOK, VoteResponse{
			Kind:   kind,
			ID:     entityID,
			Status: result,
			Tally:  tally,
		})
	}
}

// GetVotes returns the counters of an entity and, for authenticated callers,
// their own vote
// GET /api/v1/{kind}/:id/votes
func (h *Handlers) GetVotes(kind vote.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")
		ctx := c.Request.Context()

		tally, err := h.ledger.Counts(ctx, kind, entityID)
		if err != nil {
			util.RespondWithError(c, err, kind.String())
			return
		}

		resp := VoteResponse{Kind: kind, ID: entityID, Tally: tally}
		if userID, ok := util.OptionalUserID(c); ok {
			status, err := h.ledger.Status(ctx, kind, entityID, userID)
			if err != nil {
				util.RespondWithError(c, err, kind.String())
				return
			}
			resp.Status = status
		}

		c.JSON(http.StatusOK, resp)
	}
}
