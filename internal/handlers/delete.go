package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/util"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/zap"
)

// DeleteEntity deletes a votable entity owned by the caller together with its
// children, voter sets and stored files
// DELETE /api/v1/{kind}/:id
func (h *Handlers) DeleteEntity(kind vote.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := h.requireAuthor(c, kind, id); !ok {
			return
		}

		report, err := h.teardown.Delete(c.Request.Context(), kind, id)
		if err != nil {
			util.RespondWithError(c, err, kind.String())
			return
		}
		if cleanupErr := report.Err(); cleanupErr != nil {
			// The entity is gone; leftovers are retried in the background
			logger.Log.Warn("Entity deleted with pending cleanup",
				logger.WithEntity(kind.String(), id),
				zap.Error(cleanupErr),
			)
		}

		c.JSON(http.StatusOK, gin.H{
			"kind":   kind,
			"id":     id,
			"report": report,
		})
	}
}

// requireAuthor checks that the caller wrote the entity. It writes the error
// response itself and returns false when the request must stop.
func (h *Handlers) requireAuthor(c *gin.Context, kind vote.Kind, id string) (string, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return "", false
	}

	authorID, err := h.content.AuthorOf(c.Request.Context(), kind, id)
	if err != nil {
		util.RespondWithError(c, err, kind.String())
		return "", false
	}
	if authorID != userID {
		util.RespondForbidden(c, "only the author can modify this "+kind.String())
		return "", false
	}
	return userID, true
}
