package repository

import (
	"context"
	"strings"

	"yatube/internal/models"
	"yatube/internal/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const postOrder = "posts.created_at DESC, posts.id DESC"

// PostRepository defines persistence operations for posts. Every list is
// newest first with Author and Group preloaded.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// Update writes the editable fields: text, group and image.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page string) (*pagination.Result[*models.Post], error)
	ListByGroup(ctx context.Context, groupID uint, page string) (*pagination.Result[*models.Post], error)
	ListByAuthor(ctx context.Context, authorID uint, page string) (*pagination.Result[*models.Post], error)
	// ListFollowedAuthorsPosts returns posts whose author userID follows.
	ListFollowedAuthorsPosts(ctx context.Context, userID uint, page string) (*pagination.Result[*models.Post], error)
	Search(ctx context.Context, text string, page string) (*pagination.Result[*models.Post], error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("Text", "GroupID", "Image").
		Omit(clause.Associations).
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) List(ctx context.Context, page string) (*pagination.Result[*models.Post], error) {
	return r.paginate(ctx, "posts.list", r.posts(), page)
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID uint, page string) (*pagination.Result[*models.Post], error) {
	return r.paginate(ctx, "posts.by_group", r.posts().Where("posts.group_id = ?", groupID), page)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, page string) (*pagination.Result[*models.Post], error) {
	return r.paginate(ctx, "posts.by_author", r.posts().Where("posts.author_id = ?", authorID), page)
}

func (r *postRepository) ListFollowedAuthorsPosts(ctx context.Context, userID uint, page string) (*pagination.Result[*models.Post], error) {
	followed := r.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
	return r.paginate(ctx, "posts.followed_authors", r.posts().Where("posts.author_id IN (?)", followed), page)
}

func (r *postRepository) Search(ctx context.Context, text string, page string) (*pagination.Result[*models.Post], error) {
	pattern := "%" + strings.ToLower(escapeLike(text)) + "%"
	return r.paginate(ctx, "posts.search", r.posts().Where("LOWER(posts.text) LIKE ? ESCAPE '\\'", pattern), page)
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) posts() *gorm.DB {
	return r.db.Model(&models.Post{})
}

func (r *postRepository) paginate(ctx context.Context, query string, q *gorm.DB, page string) (*pagination.Result[*models.Post], error) {
	return paginate[*models.Post](ctx, q.Session(&gorm.Session{}), query, "posts", postOrder, page, "Author", "Group")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
