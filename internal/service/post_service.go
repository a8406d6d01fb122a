// Package service implements the business rules behind the HTML views.
package service

import (
	"context"
	"errors"
	"strings"

	"yatube/internal/media"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// ImageStore persists uploaded post images; media.Storage implements it.
// Save reports whether it wrote a new file, which Remove may then discard.
type ImageStore interface {
	Save(ctx context.Context, filename string, content []byte) (string, bool, error)
	Remove(name string) error
}

// ImageUpload is an image file submitted with a post form.
type ImageUpload struct {
	Filename string
	Content  []byte
}

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	images    ImageStore
}

type CreatePostInput struct {
	AuthorID uint
	Form     validation.PostForm
	Image    *ImageUpload
}

type EditPostInput struct {
	UserID uint
	PostID uint
	Form   validation.PostForm
	// Image replaces the current image when set.
	Image *ImageUpload
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	images ImageStore,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		images:    images,
	}
}

// GetPost returns a post with its author and group.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// Groups returns the group choices offered by the post form.
func (s *PostService) Groups(ctx context.Context) ([]*models.Group, error) {
	return s.groupRepo.All(ctx)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post := &models.Post{AuthorID: in.AuthorID}
	written, err := s.apply(ctx, post, &in.Form, in.Image)
	if err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, s.discard(written, err)
	}
	observability.ContentCreated.WithLabelValues("post").Inc()

	return post, nil
}

// EditPost updates text, group and image of a post owned by in.UserID.
// Other users get an UNAUTHORIZED error and the post is left untouched.
func (s *PostService) EditPost(ctx context.Context, in EditPostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only edit your own posts")
	}

	written, err := s.apply(ctx, post, &in.Form, in.Image)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, s.discard(written, err)
	}

	return post, nil
}

// apply validates the form and copies it onto post. The image is stored
// only once every other field is valid; the returned name is set when this
// call wrote a new file.
func (s *PostService) apply(ctx context.Context, post *models.Post, form *validation.PostForm, image *ImageUpload) (string, error) {
	form.Text = strings.TrimSpace(form.Text)
	form.Group = strings.TrimSpace(form.Group)
	if err := checkForm(form); err != nil {
		return "", err
	}

	groupID, err := form.GroupID()
	if err != nil {
		return "", invalidForm(validation.FieldErrors{"group": "Select a valid choice."})
	}
	if groupID != nil {
		group, err := s.groupRepo.GetByID(ctx, *groupID)
		if models.IsNotFound(err) {
			return "", invalidForm(validation.FieldErrors{"group": "Select a valid choice. That choice is not one of the available choices."})
		}
		if err != nil {
			return "", err
		}
		post.Group = group
	} else {
		post.Group = nil
	}

	var written string
	if image != nil && len(image.Content) > 0 {
		name, created, err := s.images.Save(ctx, image.Filename, image.Content)
		switch {
		case errors.Is(err, media.ErrInvalidImage):
			return "", invalidForm(validation.FieldErrors{"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image."})
		case errors.Is(err, media.ErrTooLarge):
			return "", invalidForm(validation.FieldErrors{"image": "The image file is too large."})
		case err != nil:
			return "", models.NewInternalError(err)
		}
		post.Image = name
		if created {
			written = name
		}
	}

	post.Text = form.Text
	post.GroupID = groupID
	return written, nil
}

// discard removes an image written for a post that could not be saved.
func (s *PostService) discard(written string, err error) error {
	if written == "" {
		return err
	}
	if rerr := s.images.Remove(written); rerr != nil {
		return errors.Join(err, models.NewInternalError(rerr))
	}
	return err
}
