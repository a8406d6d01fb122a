// Package seed creates demo data for development databases: built-in groups
// and fake users, posts, comments and follows.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options controls how much data is generated.
type Options struct {
	NumUsers       int
	NumPosts       int
	NumComments    int
	FollowsPerUser int
	// MaxDays spreads post dates over the last MaxDays days.
	MaxDays int
	// Seed makes the generated content reproducible; zero picks a time-based seed.
	Seed int64
	// FastHash hashes passwords with the minimum bcrypt cost.
	FastHash bool
	// DryRun builds entities with synthetic ids and writes nothing.
	DryRun bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	hash   string
	nextID uint
}

// NewFactory creates a Factory bound to db. db may be nil in DryRun mode.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed), hash: string(hash), nextID: 1000}, nil
}

// BuildUser returns an unsaved user with a unique username derived from n.
func (f *Factory) BuildUser(n int, overrides ...func(*models.User)) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, n))
	username = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, username)

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.hash,
		FirstName: first,
		LastName:  last,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPost returns an unsaved post by author, in group when it is not nil,
// dated somewhere in the last MaxDays days.
func (f *Factory) BuildPost(author *models.User, group *models.Group, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	age := time.Duration(f.faker.IntRange(0, maxDays*24*60)) * time.Minute

	post := &models.Post{
		Text:      f.faker.Paragraph(f.faker.IntRange(1, 3), f.faker.IntRange(2, 5), 12, "\n"),
		AuthorID:  author.ID,
		CreatedAt: time.Now().Add(-age),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// BuildComment returns an unsaved comment on post by author.
func (f *Factory) BuildComment(post *models.Post, author *models.User) *models.Comment {
	return &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     f.faker.Sentence(f.faker.IntRange(3, 15)),
		Active:   true,
	}
}

// CreateUsers builds and persists n users.
func (f *Factory) CreateUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, f.BuildUser(i))
	}
	if err := f.createBatch(&users, len(users)); err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

// CreatePostsBatch persists posts in one statement per batch.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	return f.createBatch(&posts, len(posts))
}

// CreateCommentsBatch persists comments in one statement per batch.
func (f *Factory) CreateCommentsBatch(comments []*models.Comment) error {
	return f.createBatch(&comments, len(comments))
}

// CreateFollows persists follows, skipping pairs that already exist.
func (f *Factory) CreateFollows(follows []*models.Follow) error {
	if f.opts.DryRun {
		return f.createBatch(&follows, len(follows))
	}
	if len(follows) == 0 {
		return nil
	}
	return f.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(follows, 200).Error
}

// Pick returns a pseudo-random element of items.
func Pick[T any](f *Factory, items []T) T {
	return items[f.faker.IntRange(0, len(items)-1)]
}

func (f *Factory) createBatch(value any, n int) error {
	if n == 0 {
		return nil
	}
	if f.opts.DryRun {
		f.assignIDs(value)
		log.Printf("[dry-run] %T: %d rows (no DB write)", value, n)
		return nil
	}
	return f.db.Omit(clause.Associations).CreateInBatches(value, 200).Error
}

func (f *Factory) assignIDs(value any) {
	next := func() uint {
		f.nextID++
		return f.nextID
	}
	switch items := value.(type) {
	case *[]*models.User:
		for _, u := range *items {
			u.ID = next()
		}
	case *[]*models.Post:
		for _, p := range *items {
			p.ID = next()
		}
	case *[]*models.Comment:
		for _, c := range *items {
			c.ID = next()
		}
	case *[]*models.Follow:
		for _, fl := range *items {
			fl.ID = next()
		}
	}
}
