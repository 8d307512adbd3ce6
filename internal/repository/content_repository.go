package repository

import (
	"context"
	"errors"

	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/vote"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Removed describes what a delete took out of the database, so the caller can
// clean up the vote sets and stored files that belonged to it.
type Removed struct {
	Entities []vote.Ref
	FileKeys []string
}

func (r *Removed) add(v vote.Votable, fileKeys ...string) {
	r.Entities = append(r.Entities, vote.RefOf(v))
	r.FileKeys = append(r.FileKeys, fileKeys...)
}

// ContentRepository handles database operations for novels, episodes, posts
// and comments
type ContentRepository interface {
	// Novels
	CreateNovel(ctx context.Context, novel *models.Novel) error
	GetNovel(ctx context.Context, id string) (*models.Novel, error)
	ListNovels(ctx context.Context, limit, offset int) ([]*models.Novel, error)
	SetNovelCover(ctx context.Context, id, url, key string) (previousKey string, err error)

	// Episodes
	CreateEpisode(ctx context.Context, episode *models.Episode) error
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	ListEpisodes(ctx context.Context, novelID string) ([]*models.Episode, error)

	// Posts
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error)
	SetPostImage(ctx context.Context, id, url, key string) (previousKey string, err error)

	// Comments
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)

	// AuthorOf returns the author id of any votable entity
	AuthorOf(ctx context.Context, kind vote.Kind, id string) (string, error)

	// Delete removes the entity and its children in one transaction
	Delete(ctx context.Context, kind vote.Kind, id string) (*Removed, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreateNovel(ctx context.Context, novel *models.Novel) error {
	if novel == nil || novel.AuthorID == "" || novel.Title == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(novel).Error
}

func (r *contentRepository) GetNovel(ctx context.Context, id string) (*models.Novel, error) {
	var novel models.Novel
	err := r.db.WithContext(ctx).
		Preload("Episodes", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("id = ?", id).
		First(&novel).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &novel, nil
}

func (r *contentRepository) ListNovels(ctx context.Context, limit, offset int) ([]*models.Novel, error) {
	var novels []*models.Novel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&novels).Error
	return novels, err
}

func (r *contentRepository) SetNovelCover(ctx context.Context, id, url, key string) (string, error) {
	return r.swapFile(ctx, &models.Novel{}, id, "cover_url", "cover_key", url, key)
}

// CreateEpisode appends the episode to its novel. A zero Number is assigned the
// next free number.
func (r *contentRepository) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	if episode == nil || episode.NovelID == "" || episode.Title == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Novel{}).Where("id = ?", episode.NovelID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		if episode.Number == 0 {
			var last int
			err := tx.Model(&models.Episode{}).
				Where("novel_id = ?", episode.NovelID).
				Select("COALESCE(MAX(number), 0)").
				Scan(&last).Error
			if err != nil {
				return err
			}
			episode.Number = last + 1
		}

		return tx.Create(episode).Error
	})
}

func (r *contentRepository) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	var episode models.Episode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&episode).Error; err != nil {
		return nil, notFound(err)
	}
	return &episode, nil
}

func (r *contentRepository) ListEpisodes(ctx context.Context, novelID string) ([]*models.Episode, error) {
	var episodes []*models.Episode
	err := r.db.WithContext(ctx).
		Where("novel_id = ?", novelID).
		Order("number ASC").
		Find(&episodes).Error
	return episodes, err
}

func (r *contentRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.AuthorID == "" || post.Title == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *contentRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (r *contentRepository) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&posts).Error
	return posts, err
}

func (r *contentRepository) SetPostImage(ctx context.Context, id, url, key string) (string, error) {
	return r.swapFile(ctx, &models.Post{}, id, "image_url", "image_key", url, key)
}

// CreateComment stores the comment and bumps the post's comment count
func (r *contentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.PostID == "" || comment.AuthorID == "" || comment.Content == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(comment).Error
	})
}

func (r *contentRepository) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (r *contentRepository) ListComments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Limit(clampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&comments).Error
	return comments, err
}

func (r *contentRepository) AuthorOf(ctx context.Context, kind vote.Kind, id string) (string, error) {
	if !kind.Valid() {
		return "", vote.ErrInvalidKind
	}

	var authorID string
	res := r.db.WithContext(ctx).
		Table(kind.Table()).
		Select("author_id").
		Where("id = ?", id).
		Limit(1).
		Scan(&authorID)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return authorID, nil
}

func (r *contentRepository) Delete(ctx context.Context, kind vote.Kind, id string) (*Removed, error) {
	removed := &Removed{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case vote.KindNovel:
			return deleteNovel(tx, id, removed)
		case vote.KindEpisode:
			return deleteEpisode(tx, id, removed)
		case vote.KindPost:
			return deletePost(tx, id, removed)
		case vote.KindComment:
			return deleteComment(tx, id, removed)
		default:
			return vote.ErrInvalidKind
		}
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func deleteNovel(tx *gorm.DB, id string, removed *Removed) error {
	var novel models.Novel
	if err := tx.Where("id = ?", id).First(&novel).Error; err != nil {
		return notFound(err)
	}

	var episodes []*models.Episode
	if err := tx.Where("novel_id = ?", id).Find(&episodes).Error; err != nil {
		return err
	}
	if err := tx.Where("novel_id = ?", id).Delete(&models.Episode{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&novel).Error; err != nil {
		return err
	}

	removed.add(&novel, novel.FileKeys()...)
	for _, ep := range episodes {
		removed.add(ep)
	}
	return nil
}

func deleteEpisode(tx *gorm.DB, id string, removed *Removed) error {
	var episode models.Episode
	if err := tx.Where("id = ?", id).First(&episode).Error; err != nil {
		return notFound(err)
	}
	if err := tx.Delete(&episode).Error; err != nil {
		return err
	}
	removed.add(&episode)
	return nil
}

func deletePost(tx *gorm.DB, id string, removed *Removed) error {
	var post models.Post
	if err := tx.Where("id = ?", id).First(&post).Error; err != nil {
		return notFound(err)
	}

	var comments []*models.Comment
	if err := tx.Where("post_id = ?", id).Find(&comments).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&post).Error; err != nil {
		return err
	}

	removed.add(&post, post.FileKeys()...)
	for _, c := range comments {
		removed.add(c)
	}
	return nil
}

func deleteComment(tx *gorm.DB, id string, removed *Removed) error {
	var comment models.Comment
	if err := tx.Where("id = ?", id).First(&comment).Error; err != nil {
		return notFound(err)
	}
	if err := tx.Delete(&comment).Error; err != nil {
		return err
	}

	err := tx.Model(&models.Post{}).
		Where("id = ?", comment.PostID).
		UpdateColumn("comment_count", gorm.Expr("CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END")).Error
	if err != nil {
		return err
	}

	removed.add(&comment)
	return nil
}

// swapFile records a new stored file on the row and returns the key it replaced
func (r *contentRepository) swapFile(ctx context.Context, model interface{}, id, urlColumn, keyColumn, url, key string) (string, error) {
	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).
			Select(keyColumn).
			Where("id = ?", id).
			Limit(1).
			Scan(&previous)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(model).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{urlColumn: url, keyColumn: key}).Error
	})
	return previous, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
