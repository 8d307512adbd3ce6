package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/errors"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/storage"
	"github.com/zfogg/inkwell/internal/util"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/zap"
)

type attachFunc func(ctx context.Context, id, url, key string) (string, error)

// UploadNovelCover replaces the cover image of a novel
// POST /api/v1/novels/:id/cover (multipart field "file")
func (h *Handlers) UploadNovelCover(c *gin.Context) {
	h.uploadImage(c, vote.KindNovel, storage.TargetNovelCover, h.content.SetNovelCover)
}

// UploadPostImage replaces the image of a gallery post
// POST /api/v1/posts/:id/image (multipart field "file")
func (h *Handlers) UploadPostImage(c *gin.Context) {
	h.uploadImage(c, vote.KindPost, storage.TargetPostImage, h.content.SetPostImage)
}

func (h *Handlers) uploadImage(c *gin.Context, kind vote.Kind, target storage.Target, attach attachFunc) {
	if h.uploader == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("image storage"))
		return
	}

	id := c.Param("id")
	userID, ok := h.requireAuthor(c, kind, id)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.RespondBadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxImageSize {
		util.RespondValidationError(c, "file", "image must be 10MB or smaller")
		return
	}
	if _, err := storage.ImageExtension(fileHeader.Filename); err != nil {
		util.RespondWithError(c, err, kind.String())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondBadRequest(c, "could not read file")
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	result, err := h.uploader.UploadImage(ctx, target, userID, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		util.RespondWithError(c, err, kind.String())
		return
	}

	previous, err := attach(ctx, id, result.URL, result.Key)
	if err != nil {
		// The row is gone or unreachable; the new object is orphaned
		h.teardown.DeleteFile(ctx, kind, result.Key)
		util.RespondWithError(c, err, kind.String())
		return
	}
	if previous != "" && previous != result.Key {
		h.teardown.DeleteFile(ctx, kind, previous)
	}

	logger.Log.Info("Image uploaded",
		logger.WithEntity(kind.String(), id),
		logger.WithUserID(userID),
		zap.String("key", result.Key),
	)
	c.JSON(http.StatusOK, result)
}
