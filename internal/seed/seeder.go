package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// seedEmailDomain marks accounts created by the seeder
const seedEmailDomain = "@seed.inkwell.test"

// Counts controls how much data a seeding run creates
type Counts struct {
	Users            int
	Novels           int
	EpisodesPerNovel int
	Posts            int
	CommentsPerPost  int
	// VotesPerEntity is the upper bound of votes cast on each entity
	VotesPerEntity int
}

// DevCounts is a realistic development dataset
func DevCounts() Counts {
	return Counts{Users: 50, Novels: 20, EpisodesPerNovel: 8, Posts: 60, CommentsPerPost: 6, VotesPerEntity: 25}
}

// TestCounts is a minimal dataset
func TestCounts() Counts {
	return Counts{Users: 5, Novels: 2, EpisodesPerNovel: 2, Posts: 3, CommentsPerPost: 2, VotesPerEntity: 4}
}

// Summary reports what a seeding run created
type Summary struct {
	Users    int
	Novels   int
	Episodes int
	Posts    int
	Comments int
	Votes    int
}

// Seeder handles database seeding operations
type Seeder struct {
	db      *gorm.DB
	content repository.ContentRepository
	users   repository.UserRepository
	ledger  *vote.Ledger
}

// NewSeeder creates a new seeder instance. Votes are cast through the ledger
// so voter sets and counters agree.
func NewSeeder(db *gorm.DB, ledger *vote.Ledger, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Seed only fails for invalid sources
	_ = gofakeit.Seed(seed)
	return &Seeder{
		db:      db,
		content: repository.NewContentRepository(db),
		users:   repository.NewUserRepository(db),
		ledger:  ledger,
	}
}

// Seed creates users, novels with episodes, posts with comments and votes on
// all of them
func (s *Seeder) Seed(ctx context.Context, counts Counts) (*Summary, error) {
	summary := &Summary{}

	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(ctx, counts.Users)
	if err != nil {
		return summary, fmt.Errorf("failed to seed users: %w", err)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	logger.Log.Info("Creating novels...")
	var votables []vote.Votable
	for i := 0; i < counts.Novels; i++ {
		novel, episodes, err := s.seedNovel(ctx, pick(users), counts.EpisodesPerNovel)
		if err != nil {
			return summary, fmt.Errorf("failed to seed novel: %w", err)
		}
		summary.Novels++
		summary.Episodes += len(episodes)
		votables = append(votables, novel)
		for _, ep := range episodes {
			votables = append(votables, ep)
		}
	}

	logger.Log.Info("Creating posts and comments...")
	for i := 0; i < counts.Posts; i++ {
		post, comments, err := s.seedPost(ctx, users, counts.CommentsPerPost)
		if err != nil {
			return summary, fmt.Errorf("failed to seed post: %w", err)
		}
		summary.Posts++
		summary.Comments += len(comments)
		votables = append(votables, post)
		for _, c := range comments {
			votables = append(votables, c)
		}
	}

	logger.Log.Info("Casting votes...", zap.Int("entities", len(votables)))
	for _, v := range votables {
		n, err := s.seedVotes(ctx, v, users, counts.VotesPerEntity)
		if err != nil {
			return summary, fmt.Errorf("failed to seed votes on %s: %w", vote.RefOf(v), err)
		}
		summary.Votes += n
	}

	return summary, nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		user := models.User{
			// Index suffix keeps usernames and emails unique within a run
			Username:    fmt.Sprintf("%s.%d", username, i),
			Email:       fmt.Sprintf("%s.%d%s", username, i, seedEmailDomain),
			DisplayName: gofakeit.Name(),
			Bio:         gofakeit.HipsterSentence(),
			AvatarURL:   fmt.Sprintf("https://api.dicebear.com/7.x/notionists/png?seed=%s", username),
		}
		if err := s.users.CreateUser(ctx, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedNovel(ctx context.Context, author models.User, episodes int) (*models.Novel, []*models.Episode, error) {
	novel := &models.Novel{
		AuthorID: author.ID,
		Title:    gofakeit.BookTitle(),
		Synopsis: sentences(3),
		Tags:     models.NormalizeTags([]string{gofakeit.BookGenre(), gofakeit.BookGenre(), gofakeit.Word()}),
	}
	if err := s.content.CreateNovel(ctx, novel); err != nil {
		return nil, nil, err
	}

	created := make([]*models.Episode, 0, episodes)
	for n := 1; n <= episodes; n++ {
		ep := &models.Episode{
			NovelID:  novel.ID,
			AuthorID: author.ID,
			Title:    fmt.Sprintf("Chapter %d: %s", n, titleCase(gofakeit.Word())),
			Content:  sentences(gofakeit.Number(8, 20)),
		}
		if err := s.content.CreateEpisode(ctx, ep); err != nil {
			return nil, nil, err
		}
		created = append(created, ep)
	}
	return novel, created, nil
}

func (s *Seeder) seedPost(ctx context.Context, users []models.User, comments int) (*models.Post, []*models.Comment, error) {
	post := &models.Post{
		AuthorID: pick(users).ID,
		Title:    titleCase(gofakeit.HipsterSentence()),
		Body:     sentences(2),
	}
	if err := s.content.CreatePost(ctx, post); err != nil {
		return nil, nil, err
	}

	created := make([]*models.Comment, 0, comments)
	for i := 0; i < comments; i++ {
		c := &models.Comment{
			PostID:   post.ID,
			AuthorID: pick(users).ID,
			Content:  gofakeit.HipsterSentence(),
		}
		if err := s.content.CreateComment(ctx, c); err != nil {
			return nil, nil, err
		}
		created = append(created, c)
	}
	return post, created, nil
}

// seedVotes casts up to limit votes from distinct users, roughly three likes
// for every dislike
func (s *Seeder) seedVotes(ctx context.Context, v vote.Votable, users []models.User, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	n := gofakeit.Number(0, min(limit, len(users)))
	order := make([]int, len(users))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := gofakeit.Number(0, i)
		order[i], order[j] = order[j], order[i]
	}

	cast := 0
	for _, idx := range order[:n] {
		var err error
		if gofakeit.Number(1, 4) == 1 {
			_, err = s.ledger.Dislike(ctx, v.VoteKind(), v.VoteID(), users[idx].ID)
		} else {
			_, err = s.ledger.Like(ctx, v.VoteKind(), v.VoteID(), users[idx].ID)
		}
		if err != nil && !vote.IsInteractionFailure(err) {
			return cast, err
		}
		if err == nil {
			cast++
		}
	}
	return cast, nil
}

// Clean removes all seeded content, and the voter sets that belong to it
func (s *Seeder) Clean(ctx context.Context) error {
	authorIDs, err := s.users.IDsByEmailDomain(ctx, seedEmailDomain)
	if err != nil {
		return fmt.Errorf("failed to list seed users: %w", err)
	}
	if len(authorIDs) == 0 {
		return nil
	}

	var errs error
	for _, kind := range []vote.Kind{vote.KindNovel, vote.KindPost} {
		var ids []string
		err := s.db.WithContext(ctx).Table(kind.Table()).
			Where("author_id IN ?", authorIDs).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to list seeded %s: %w", kind.Table(), err)
		}
		for _, id := range ids {
			removed, err := s.content.Delete(ctx, kind, id)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if err := s.ledger.Forget(ctx, removed.Entities...); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}

	// Comments left by seed users on other posts
	var commentIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("author_id IN ?", authorIDs).Pluck("id", &commentIDs).Error; err != nil {
		return fmt.Errorf("failed to list seeded comments: %w", err)
	}
	for _, id := range commentIDs {
		removed, err := s.content.Delete(ctx, vote.KindComment, id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := s.ledger.Forget(ctx, removed.Entities...); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if _, err := s.users.DeleteUsers(ctx, authorIDs); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to clean users: %w", err))
	}
	return errs
}

func pick(users []models.User) models.User {
	return users[gofakeit.Number(0, len(users)-1)]
}

func sentences(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = gofakeit.HipsterSentence()
	}
	return strings.Join(parts, " ")
}

func titleCase(s string) string {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
