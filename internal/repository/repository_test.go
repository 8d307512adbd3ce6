package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/vote"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing. A single
// connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

type RepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	content  ContentRepository
	counters *CounterRepository
	users    UserRepository
	ctx      context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = setupTestDB(s.T())
	s.content = NewContentRepository(s.db)
	s.counters = NewCounterRepository(s.db)
	s.users = NewUserRepository(s.db)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) createNovel(title string) *models.Novel {
	novel := &models.Novel{AuthorID: "author-1", Title: title}
	s.Require().NoError(s.content.CreateNovel(s.ctx, novel))
	return novel
}

func (s *RepositoryTestSuite) createPost(title string) *models.Post {
	post := &models.Post{AuthorID: "author-1", Title: title}
	s.Require().NoError(s.content.CreatePost(s.ctx, post))
	return post
}

func (s *RepositoryTestSuite) TestAdjustAppliesDeltas() {
	post := s.createPost("sunset")

	tally, err := s.counters.Adjust(s.ctx, vote.KindPost, post.ID, 1, 0)
	s.Require().NoError(err)
	s.Equal(vote.Tally{LikeCount: 1}, tally)

	tally, err = s.counters.Adjust(s.ctx, vote.KindPost, post.ID, -1, 1)
	s.Require().NoError(err)
	s.Equal(vote.Tally{LikeCount: 0, DislikeCount: 1}, tally)

	stored, err := s.content.GetPost(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.DislikeCount)
}

func (s *RepositoryTestSuite) TestAdjustNeverGoesNegative() {
	novel := s.createNovel("Clamp")

	tally, err := s.counters.Adjust(s.ctx, vote.KindNovel, novel.ID, -1, -3)
	s.Require().NoError(err)
	s.Equal(vote.Tally{}, tally)
}

func (s *RepositoryTestSuite) TestAdjustUnknownEntity() {
	_, err := s.counters.Adjust(s.ctx, vote.KindComment, "missing", 1, 0)
	s.ErrorIs(err, vote.ErrEntityNotFound)

	_, err = s.counters.Tally(s.ctx, vote.KindComment, "missing")
	s.ErrorIs(err, vote.ErrEntityNotFound)

	err = s.counters.Overwrite(s.ctx, vote.KindComment, "missing", vote.Tally{LikeCount: 1})
	s.ErrorIs(err, vote.ErrEntityNotFound)
}

// reportUnchangedRows makes updates report zero affected rows, the way MySQL
// does for an UPDATE that leaves the row as it was
func (s *RepositoryTestSuite) reportUnchangedRows() {
	err := s.db.Callback().Update().After("gorm:update").Register("test:unchanged_rows", func(db *gorm.DB) {
		db.RowsAffected = 0
	})
	s.Require().NoError(err)
}

func (s *RepositoryTestSuite) TestAdjustUnchangedRowIsNotMissing() {
	novel := s.createNovel("Drifted")
	s.reportUnchangedRows()

	tally, err := s.counters.Adjust(s.ctx, vote.KindNovel, novel.ID, -1, 0)
	s.Require().NoError(err)
	s.Equal(vote.Tally{}, tally)

	tally, err = s.counters.Adjust(s.ctx, vote.KindNovel, novel.ID, 0, 1)
	s.Require().NoError(err)
	s.Equal(vote.Tally{DislikeCount: 1}, tally)

	_, err = s.counters.Adjust(s.ctx, vote.KindNovel, "missing", -1, 0)
	s.ErrorIs(err, vote.ErrEntityNotFound)
}

func (s *RepositoryTestSuite) TestOverwriteUnchangedRowIsNotMissing() {
	post := s.createPost("steady")
	s.reportUnchangedRows()

	s.NoError(s.counters.Overwrite(s.ctx, vote.KindPost, post.ID, vote.Tally{}))
	s.ErrorIs(s.counters.Overwrite(s.ctx, vote.KindPost, "missing", vote.Tally{}), vote.ErrEntityNotFound)
}

func (s *RepositoryTestSuite) TestLedgerKeepsRetractOnClampedCounter() {
	post := s.createPost("drift")
	s.reportUnchangedRows()

	sets := vote.NewMemorySetStore()
	ledger := vote.NewLedger(sets, s.counters)
	_, err := sets.Add(s.ctx, vote.LikesKey(vote.KindPost, post.ID), "alice")
	s.Require().NoError(err)

	// like_count is already 0, so the decrement is clamped to a no-op
	tally, err := ledger.Retract(s.ctx, vote.KindPost, post.ID, "alice")
	s.Require().NoError(err)
	s.Equal(vote.Tally{}, tally)

	liked, err := sets.IsMember(s.ctx, vote.LikesKey(vote.KindPost, post.ID), "alice")
	s.Require().NoError(err)
	s.False(liked)
}

func (s *RepositoryTestSuite) TestOverwrite() {
	novel := s.createNovel("Reconciled")

	s.Require().NoError(s.counters.Overwrite(s.ctx, vote.KindNovel, novel.ID, vote.Tally{LikeCount: 4, DislikeCount: 2}))

	tally, err := s.counters.Tally(s.ctx, vote.KindNovel, novel.ID)
	s.Require().NoError(err)
	s.Equal(vote.Tally{LikeCount: 4, DislikeCount: 2}, tally)

	err = s.counters.Overwrite(s.ctx, vote.KindNovel, novel.ID, vote.Tally{LikeCount: -1})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *RepositoryTestSuite) TestConcurrentAdjustLosesNoUpdates() {
	post := s.createPost("popular")
	const voters = 50

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.counters.Adjust(s.ctx, vote.KindPost, post.ID, 1, 0)
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	tally, err := s.counters.Tally(s.ctx, vote.KindPost, post.ID)
	s.Require().NoError(err)
	s.Equal(int64(voters), tally.LikeCount)
}

func (s *RepositoryTestSuite) TestLedgerOverDatabase() {
	comment := &models.Comment{PostID: s.createPost("thread").ID, AuthorID: "author-2", Content: "first"}
	s.Require().NoError(s.content.CreateComment(s.ctx, comment))

	ledger := vote.NewLedger(vote.NewMemorySetStore(), s.counters)

	_, err := ledger.Like(s.ctx, vote.KindComment, comment.ID, "A")
	s.Require().NoError(err)
	_, err = ledger.Like(s.ctx, vote.KindComment, comment.ID, "B")
	s.Require().NoError(err)
	tally, err := ledger.Dislike(s.ctx, vote.KindComment, comment.ID, "A")
	s.Require().NoError(err)
	s.Equal(vote.Tally{LikeCount: 1, DislikeCount: 1}, tally)

	stored, err := s.content.GetComment(s.ctx, comment.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.LikeCount)
	s.Equal(int64(1), stored.DislikeCount)
}

func (s *RepositoryTestSuite) TestEpisodesAreNumbered() {
	novel := s.createNovel("Serial")

	for i := 1; i <= 3; i++ {
		ep := &models.Episode{NovelID: novel.ID, AuthorID: novel.AuthorID, Title: fmt.Sprintf("Part %d", i), Content: "..."}
		s.Require().NoError(s.content.CreateEpisode(s.ctx, ep))
		s.Equal(i, ep.Number)
	}

	loaded, err := s.content.GetNovel(s.ctx, novel.ID)
	s.Require().NoError(err)
	s.Len(loaded.Episodes, 3)
	s.Equal("Part 1", loaded.Episodes[0].Title)

	err = s.content.CreateEpisode(s.ctx, &models.Episode{NovelID: "missing", Title: "x", Content: "y"})
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestCommentCount() {
	post := s.createPost("counted")
	for i := 0; i < 2; i++ {
		s.Require().NoError(s.content.CreateComment(s.ctx, &models.Comment{PostID: post.ID, AuthorID: "u", Content: "hi"}))
	}

	comments, err := s.content.ListComments(s.ctx, post.ID, 10, 0)
	s.Require().NoError(err)
	s.Len(comments, 2)

	_, err = s.content.Delete(s.ctx, vote.KindComment, comments[0].ID)
	s.Require().NoError(err)

	stored, err := s.content.GetPost(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.CommentCount)

	err = s.content.CreateComment(s.ctx, &models.Comment{PostID: "missing", AuthorID: "u", Content: "hi"})
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteNovelCascades() {
	novel := s.createNovel("Doomed")
	_, err := s.content.SetNovelCover(s.ctx, novel.ID, "https://cdn/covers/a.png", "covers/a.png")
	s.Require().NoError(err)

	ep := &models.Episode{NovelID: novel.ID, AuthorID: novel.AuthorID, Title: "One", Content: "..."}
	s.Require().NoError(s.content.CreateEpisode(s.ctx, ep))

	removed, err := s.content.Delete(s.ctx, vote.KindNovel, novel.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]vote.Ref{{Kind: vote.KindNovel, ID: novel.ID}, {Kind: vote.KindEpisode, ID: ep.ID}}, removed.Entities)
	s.Equal([]string{"covers/a.png"}, removed.FileKeys)

	_, err = s.content.GetEpisode(s.ctx, ep.ID)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.content.Delete(s.ctx, vote.KindNovel, novel.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeletePostCascades() {
	post := s.createPost("With comments")
	comment := &models.Comment{PostID: post.ID, AuthorID: "u", Content: "nice"}
	s.Require().NoError(s.content.CreateComment(s.ctx, comment))

	removed, err := s.content.Delete(s.ctx, vote.KindPost, post.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]vote.Ref{{Kind: vote.KindPost, ID: post.ID}, {Kind: vote.KindComment, ID: comment.ID}}, removed.Entities)
	s.Empty(removed.FileKeys)
}

func (s *RepositoryTestSuite) TestSetPostImageReturnsPreviousKey() {
	post := s.createPost("gallery")

	prev, err := s.content.SetPostImage(s.ctx, post.ID, "https://cdn/a.png", "posts/a.png")
	s.Require().NoError(err)
	s.Empty(prev)

	prev, err = s.content.SetPostImage(s.ctx, post.ID, "https://cdn/b.png", "posts/b.png")
	s.Require().NoError(err)
	s.Equal("posts/a.png", prev)

	_, err = s.content.SetPostImage(s.ctx, "missing", "u", "k")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestAuthorOf() {
	novel := s.createNovel("Mine")

	author, err := s.content.AuthorOf(s.ctx, vote.KindNovel, novel.ID)
	s.Require().NoError(err)
	s.Equal("author-1", author)

	_, err = s.content.AuthorOf(s.ctx, vote.KindPost, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestUsers() {
	user := &models.User{Email: "Ada@Example.com", Username: "Ada", DisplayName: "Ada"}
	s.Require().NoError(s.users.CreateUser(s.ctx, user))
	s.NotEmpty(user.ID)
	s.Equal("ada@example.com", user.Email)

	found, err := s.users.GetUserByUsername(s.ctx, "ada")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	_, err = s.users.GetUser(s.ctx, "missing")
	s.ErrorIs(err, ErrUserNotFound)

	s.ErrorIs(s.users.CreateUser(s.ctx, &models.User{}), ErrInvalidInput)
}

func (s *RepositoryTestSuite) TestUsersByEmailDomain() {
	for i, email := range []string{"a@seed.test", "b@seed.test", "c@elsewhere.test"} {
		s.Require().NoError(s.users.CreateUser(s.ctx, &models.User{
			Email:    email,
			Username: fmt.Sprintf("user%d", i),
		}))
	}

	ids, err := s.users.IDsByEmailDomain(s.ctx, "@seed.test")
	s.Require().NoError(err)
	s.Len(ids, 2)

	_, err = s.users.IDsByEmailDomain(s.ctx, "seed.test")
	s.ErrorIs(err, ErrInvalidInput)

	deleted, err := s.users.DeleteUsers(s.ctx, ids)
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)

	ids, err = s.users.IDsByEmailDomain(s.ctx, "@seed.test")
	s.Require().NoError(err)
	s.Empty(ids)

	deleted, err = s.users.DeleteUsers(s.ctx, nil)
	s.Require().NoError(err)
	s.Zero(deleted)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
