package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a gallery post, optionally carrying one image
type Post struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Body     string `gorm:"type:text" json:"body"`

	ImageURL string `json:"image_url,omitempty"`
	ImageKey string `json:"-"`

	VoteCounts

	CommentCount int64 `gorm:"not null;default:0" json:"comment_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was set
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}

// FileKeys lists the stored objects owned by the post
func (p *Post) FileKeys() []string {
	if p.ImageKey == "" {
		return nil
	}
	return []string{p.ImageKey}
}

// Comment is a reply on a post
type Comment struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID   string `gorm:"type:varchar(36);not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Content  string `gorm:"type:text;not null" json:"content"`

	VoteCounts

	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was set
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

// AllModels lists every model for migrations
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Novel{},
		&Episode{},
		&Post{},
		&Comment{},
	}
}
