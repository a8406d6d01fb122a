package repository

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines persistence operations for follow relations.
type FollowRepository interface {
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	// GetOrCreate returns the (user, author) relation, creating it if absent.
	// created reports whether this call inserted the row.
	GetOrCreate(ctx context.Context, userID, authorID uint) (follow *models.Follow, created bool, err error)
	// Delete removes the relation; NOT_FOUND if it does not exist.
	Delete(ctx context.Context, userID, authorID uint) error
	// List returns relations ordered by follower id, descending.
	List(ctx context.Context, page string) (*pagination.Result[*models.Follow], error)
	CountFollowers(ctx context.Context, authorID uint) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *followRepository) GetOrCreate(ctx context.Context, userID, authorID uint) (*models.Follow, bool, error) {
	var (
		follow  models.Follow
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND author_id = ?", userID, authorID).First(&follow).Error
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		follow = models.Follow{UserID: userID, AuthorID: authorID}
		// A concurrent insert of the same pair loses quietly on the unique index.
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			created = true
			return nil
		}
		return tx.Where("user_id = ? AND author_id = ?", userID, authorID).First(&follow).Error
	})
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	return &follow, created, nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Follow", authorID)
	}
	return nil
}

func (r *followRepository) List(ctx context.Context, page string) (*pagination.Result[*models.Follow], error) {
	base := r.db.Model(&models.Follow{}).Session(&gorm.Session{})
	return paginate[*models.Follow](ctx, base, "follows.list", "follows", "user_id DESC, id DESC", page, "User", "Author")
}

func (r *followRepository) CountFollowers(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
