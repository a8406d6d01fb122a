package seed

import (
	"fmt"
	"log"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// Summary counts what a seeding run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seeder fills a database with built-in groups and fake content.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f, opts: opts}, nil
}

// ClearAll deletes every row of the domain tables, children first.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds groups, then users, posts spread over users and groups, comments
// and follows.
func (s *Seeder) Run() (*Summary, error) {
	var sum Summary

	groups := make([]*models.Group, 0, len(BuiltInGroups))
	if !s.opts.DryRun {
		var err error
		if groups, err = Groups(s.db); err != nil {
			return nil, err
		}
	}
	sum.Groups = len(groups)

	users, err := s.factory.CreateUsers(s.opts.NumUsers)
	if err != nil {
		return nil, err
	}
	sum.Users = len(users)
	log.Printf("%d users created", len(users))
	if len(users) == 0 {
		return &sum, nil
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		var group *models.Group
		// Roughly a third of posts have no group.
		if len(groups) > 0 && i%3 != 0 {
			group = Pick(s.factory, groups)
		}
		posts = append(posts, s.factory.BuildPost(Pick(s.factory, users), group))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)
	log.Printf("%d posts created", len(posts))

	if len(posts) > 0 {
		comments := make([]*models.Comment, 0, s.opts.NumComments)
		for i := 0; i < s.opts.NumComments; i++ {
			comments = append(comments, s.factory.BuildComment(Pick(s.factory, posts), Pick(s.factory, users)))
		}
		if err := s.factory.CreateCommentsBatch(comments); err != nil {
			return nil, fmt.Errorf("create comments: %w", err)
		}
		sum.Comments = len(comments)
	}

	follows := s.buildFollows(users)
	if err := s.factory.CreateFollows(follows); err != nil {
		return nil, fmt.Errorf("create follows: %w", err)
	}
	sum.Follows = len(follows)

	return &sum, nil
}

// buildFollows gives every user up to FollowsPerUser distinct authors, never themselves.
func (s *Seeder) buildFollows(users []*models.User) []*models.Follow {
	per := s.opts.FollowsPerUser
	if per > len(users)-1 {
		per = len(users) - 1
	}

	var follows []*models.Follow
	for i, user := range users {
		for k := 1; k <= per; k++ {
			author := users[(i+k)%len(users)]
			follows = append(follows, &models.Follow{UserID: user.ID, AuthorID: author.ID})
		}
	}
	return follows
}
