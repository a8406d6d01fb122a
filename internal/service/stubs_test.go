package service

import (
	"context"
	"errors"
	"testing"

	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
	listFn    func(context.Context, string) (*pagination.Result[*models.Post], error)
	countByFn func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, page string) (*pagination.Result[*models.Post], error) {
	return s.listFn(ctx, page)
}
func (s *postRepoStub) ListByGroup(ctx context.Context, _ uint, page string) (*pagination.Result[*models.Post], error) {
	return s.listFn(ctx, page)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, _ uint, page string) (*pagination.Result[*models.Post], error) {
	return s.listFn(ctx, page)
}
func (s *postRepoStub) ListFollowedAuthorsPosts(ctx context.Context, _ uint, page string) (*pagination.Result[*models.Post], error) {
	return s.listFn(ctx, page)
}
func (s *postRepoStub) Search(ctx context.Context, _ string, page string) (*pagination.Result[*models.Post], error) {
	return s.listFn(ctx, page)
}
func (s *postRepoStub) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.countByFn(ctx, authorID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		updateFn:  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) error { return nil },
		listFn: func(_ context.Context, page string) (*pagination.Result[*models.Post], error) {
			return &pagination.Result[*models.Post]{Page: pagination.New(0, page)}, nil
		},
		countByFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.Group, error)
	allFn     func(context.Context) ([]*models.Group, error)
}

func (s *groupRepoStub) GetBySlug(_ context.Context, slug string) (*models.Group, error) {
	return nil, models.NewNotFoundError("Group", slug)
}
func (s *groupRepoStub) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	return s.getByIDFn(ctx, id)
}
func (s *groupRepoStub) List(_ context.Context, page string) (*pagination.Result[*models.Group], error) {
	return &pagination.Result[*models.Group]{Page: pagination.New(0, page)}, nil
}
func (s *groupRepoStub) All(ctx context.Context) ([]*models.Group, error) {
	return s.allFn(ctx)
}
func (s *groupRepoStub) Create(_ context.Context, _ *models.Group) error { return nil }
func (s *groupRepoStub) DeleteBySlug(_ context.Context, _ string) error  { return nil }

func noopGroupRepo() *groupRepoStub {
	return &groupRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Group, error) {
			return &models.Group{ID: id, Slug: "cats", Title: "Cats"}, nil
		},
		allFn: func(_ context.Context) ([]*models.Group, error) { return nil, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByUsernameFn    func(context.Context, string) (*models.User, error)
	existsByUsernameFn func(context.Context, string) (bool, error)
	existsByEmailFn    func(context.Context, string) (bool, error)
	createFn           func(context.Context, *models.User) error
	deleteFn           func(context.Context, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.existsByUsernameFn(ctx, username)
}
func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.existsByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", username)
		},
		existsByUsernameFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		existsByEmailFn:    func(_ context.Context, _ string) (bool, error) { return false, nil },
		createFn:           func(_ context.Context, _ *models.User) error { return nil },
		deleteFn:           func(_ context.Context, _ uint) error { return nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	existsFn      func(context.Context, uint, uint) (bool, error)
	getOrCreateFn func(context.Context, uint, uint) (*models.Follow, bool, error)
	deleteFn      func(context.Context, uint, uint) error
}

func (s *followRepoStub) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.existsFn(ctx, userID, authorID)
}
func (s *followRepoStub) GetOrCreate(ctx context.Context, userID, authorID uint) (*models.Follow, bool, error) {
	return s.getOrCreateFn(ctx, userID, authorID)
}
func (s *followRepoStub) Delete(ctx context.Context, userID, authorID uint) error {
	return s.deleteFn(ctx, userID, authorID)
}
func (s *followRepoStub) List(_ context.Context, page string) (*pagination.Result[*models.Follow], error) {
	return &pagination.Result[*models.Follow]{Page: pagination.New(0, page)}, nil
}
func (s *followRepoStub) CountFollowers(_ context.Context, _ uint) (int64, error) { return 0, nil }

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		existsFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		getOrCreateFn: func(_ context.Context, userID, authorID uint) (*models.Follow, bool, error) {
			return &models.Follow{UserID: userID, AuthorID: authorID}, true, nil
		},
		deleteFn: func(_ context.Context, _, _ uint) error { return nil },
	}
}

// imageStoreStub is a stub for ImageStore.
type imageStoreStub struct {
	saveFn  func(context.Context, string, []byte) (string, bool, error)
	removed []string
}

func (s *imageStoreStub) Save(ctx context.Context, filename string, content []byte) (string, bool, error) {
	return s.saveFn(ctx, filename, content)
}

func (s *imageStoreStub) Remove(name string) error {
	s.removed = append(s.removed, name)
	return nil
}

func noopImageStore() *imageStoreStub {
	return &imageStoreStub{
		saveFn: func(_ context.Context, filename string, _ []byte) (string, bool, error) {
			return "posts/" + filename, true, nil
		},
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

// assertFieldError asserts a VALIDATION_ERROR carrying a message for field.
func assertFieldError(t *testing.T, err error, field string) string {
	t.Helper()
	assertValidationError(t, err)
	fields, ok := validation.AsFieldErrors(err)
	require.True(t, ok, "expected field errors, got %v", err)
	require.Contains(t, fields, field)
	return fields[field]
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}
