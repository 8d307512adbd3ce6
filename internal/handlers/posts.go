package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/util"
)

// CreatePost creates a gallery post owned by the caller
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title" binding:"required,max=200"`
		Body  string `json:"body" binding:"max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	post := &models.Post{AuthorID: userID, Title: req.Title, Body: req.Body}
	if err := h.content.CreatePost(c.Request.Context(), post); err != nil {
		util.RespondWithError(c, err, "post")
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetPost returns one post
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.content.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err, "post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListPosts returns the newest posts
// GET /api/v1/posts?limit=&offset=
func (h *Handlers) ListPosts(c *gin.Context) {
	limit, offset := pagination(c)
	posts, err := h.content.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondWithError(c, err, "posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "limit": limit, "offset": offset})
}

// CreateComment creates a new comment on a post
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	comment := &models.Comment{
		PostID:   c.Param("id"),
		AuthorID: userID,
		Content:  req.Content,
	}
	if err := h.content.CreateComment(c.Request.Context(), comment); err != nil {
		util.RespondWithError(c, err, "post")
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// GetComments lists the comments of a post, oldest first
// GET /api/v1/posts/:id/comments?limit=&offset=
func (h *Handlers) GetComments(c *gin.Context) {
	limit, offset := pagination(c)
	comments, err := h.content.ListComments(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		util.RespondWithError(c, err, "comments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "limit": limit, "offset": offset})
}

// GetComment returns one comment
// GET /api/v1/comments/:id
func (h *Handlers) GetComment(c *gin.Context) {
	comment, err := h.content.GetComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err, "comment")
		return
	}
	c.JSON(http.StatusOK, comment)
}
