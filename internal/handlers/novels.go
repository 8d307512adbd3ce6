package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/util"
	"github.com/zfogg/inkwell/internal/vote"
)

// CreateNovel creates a novel owned by the caller
// POST /api/v1/novels
func (h *Handlers) CreateNovel(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title    string   `json:"title" binding:"required,max=200"`
		Synopsis string   `json:"synopsis" binding:"max=5000"`
		Tags     []string `json:"tags" binding:"max=20"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	novel := &models.Novel{
		AuthorID: userID,
		Title:    req.Title,
		Synopsis: req.Synopsis,
		Tags:     models.NormalizeTags(req.Tags),
	}
	if err := h.content.CreateNovel(c.Request.Context(), novel); err != nil {
		util.RespondWithError(c, err, "novel")
		return
	}

	c.JSON(http.StatusCreated, novel)
}

// GetNovel returns a novel with its episodes
// GET /api/v1/novels/:id
func (h *Handlers) GetNovel(c *gin.Context) {
	novel, err := h.content.GetNovel(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err, "novel")
		return
	}
	c.JSON(http.StatusOK, novel)
}

// ListNovels returns the newest novels
// GET /api/v1/novels?limit=&offset=
func (h *Handlers) ListNovels(c *gin.Context) {
	limit, offset := pagination(c)
	novels, err := h.content.ListNovels(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondWithError(c, err, "novels")
		return
	}
	c.JSON(http.StatusOK, gin.H{"novels": novels, "limit": limit, "offset": offset})
}

// CreateEpisode appends an episode to a novel. Only the novel's author may add
// episodes.
// POST /api/v1/novels/:id/episodes
func (h *Handlers) CreateEpisode(c *gin.Context) {
	userID, ok := h.requireAuthor(c, vote.KindNovel, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title" binding:"required,max=200"`
		Content string `json:"content" binding:"required"`
		Number  int    `json:"number" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	episode := &models.Episode{
		NovelID:  c.Param("id"),
		AuthorID: userID,
		Number:   req.Number,
		Title:    req.Title,
		Content:  req.Content,
	}
	if err := h.content.CreateEpisode(c.Request.Context(), episode); err != nil {
		util.RespondWithError(c, err, "novel")
		return
	}

	c.JSON(http.StatusCreated, episode)
}

// GetEpisode returns one episode
// GET /api/v1/episodes/:id
func (h *Handlers) GetEpisode(c *gin.Context) {
	episode, err := h.content.GetEpisode(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err, "episode")
		return
	}
	c.JSON(http.StatusOK, episode)
}
