package models

import (
	"time"

	"gorm.io/gorm"
)

// Novel is a serialized story made of episodes
type Novel struct {
	ID       string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID string      `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Title    string      `gorm:"size:200;not null" json:"title"`
	Synopsis string      `gorm:"type:text" json:"synopsis"`
	Tags     StringArray `gorm:"type:text" json:"tags"`

	// Cover image stored in S3. CoverKey is the object key used for cleanup.
	CoverURL string `json:"cover_url,omitempty"`
	CoverKey string `json:"-"`

	VoteCounts

	Episodes []Episode `gorm:"foreignKey:NovelID" json:"episodes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was set
func (n *Novel) BeforeCreate(tx *gorm.DB) error {
	n.ID = ensureID(n.ID)
	return nil
}

// FileKeys lists the stored objects owned by the novel
func (n *Novel) FileKeys() []string {
	if n.CoverKey == "" {
		return nil
	}
	return []string{n.CoverKey}
}

// Episode is a numbered chapter of a novel
type Episode struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NovelID  string `gorm:"type:varchar(36);not null;uniqueIndex:idx_episodes_novel_number" json:"novel_id"`
	Number   int    `gorm:"not null;uniqueIndex:idx_episodes_novel_number" json:"number"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`

	VoteCounts

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was set
func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	e.ID = ensureID(e.ID)
	return nil
}
