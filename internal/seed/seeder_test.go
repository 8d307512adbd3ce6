package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/vote"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeeder(t *testing.T) (*Seeder, *gorm.DB, *vote.Ledger, *vote.MemorySetStore) {
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

	sets := vote.NewMemorySetStore()
	ledger := vote.NewLedger(sets, repository.NewCounterRepository(db))
	return NewSeeder(db, ledger, 42), db, ledger, sets
}

func TestSeedKeepsCountersConsistent(t *testing.T) {
	seeder, db, ledger, _ := setupSeeder(t)
	ctx := context.Background()

	counts := TestCounts()
	summary, err := seeder.Seed(ctx, counts)
	require.NoError(t, err)

	assert.Equal(t, counts.Users, summary.Users)
	assert.Equal(t, counts.Novels, summary.Novels)
	assert.Equal(t, counts.Novels*counts.EpisodesPerNovel, summary.Episodes)
	assert.Equal(t, counts.Posts, summary.Posts)
	assert.Equal(t, counts.Posts*counts.CommentsPerPost, summary.Comments)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		assert.Equal(t, int64(counts.CommentsPerPost), p.CommentCount)
	}

	// Every counter matches its voter sets
	var total int64
	for _, kind := range vote.Kinds() {
		var ids []string
		require.NoError(t, db.Table(kind.Table()).Pluck("id", &ids).Error)
		for _, id := range ids {
			snap, err := ledger.Inspect(ctx, kind, id)
			require.NoError(t, err)
			assert.False(t, snap.Drifted(), "%s:%s drifted: %+v", kind, id, snap)
			assert.LessOrEqual(t, snap.Likers+snap.Dislikers, int64(counts.VotesPerEntity))
			total += snap.Likers + snap.Dislikers
		}
	}
	assert.Equal(t, int64(summary.Votes), total)
}

func TestCleanRemovesSeededData(t *testing.T) {
	seeder, db, _, sets := setupSeeder(t)
	ctx := context.Background()

	// Content by a real user survives
	writer := &models.User{Email: "writer@example.com", Username: "writer"}
	require.NoError(t, db.Create(writer).Error)
	content := repository.NewContentRepository(db)
	keep := &models.Post{AuthorID: writer.ID, Title: "mine"}
	require.NoError(t, content.CreatePost(ctx, keep))

	summary, err := seeder.Seed(ctx, TestCounts())
	require.NoError(t, err)
	if summary.Votes > 0 {
		require.NotZero(t, sets.Len())
	}
	require.NoError(t, seeder.Clean(ctx))

	for _, model := range []interface{}{&models.Novel{}, &models.Episode{}, &models.Comment{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}

	var users []models.User
	require.NoError(t, db.Unscoped().Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, writer.ID, users[0].ID)

	_, err = content.GetPost(ctx, keep.ID)
	assert.NoError(t, err)
	assert.Zero(t, sets.Len(), "voter sets of seeded content are gone")
}

func TestSeedWithoutUsers(t *testing.T) {
	seeder, _, _, _ := setupSeeder(t)
	summary, err := seeder.Seed(context.Background(), Counts{Novels: 3})
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
}
