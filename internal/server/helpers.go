package server

import (
	"errors"
	"fmt"
	"io"

	"yatube/internal/cache"
	"yatube/internal/featureflags"
	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// currentUserID returns the id set by the session loader, or zero for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	uid, _ := c.Locals("userID").(uint)
	return uid
}

func currentUsername(c *fiber.Ctx) string {
	name, _ := c.Locals("username").(string)
	return name
}

// parseID reads a positive numeric route parameter. Anything else is a
// NOT_FOUND error, so malformed ids render the same page as missing ones.
func parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError(resource, c.Params(param))
	}
	return uint(id), nil
}

// formErrors extracts field errors from a VALIDATION_ERROR returned by a service.
func formErrors(err error) (validation.FieldErrors, bool) {
	if !models.HasCode(err, models.CodeValidation) {
		return nil, false
	}
	return validation.AsFieldErrors(err)
}

// readImage loads the optional "image" multipart file. A missing file is not an error.
func readImage(c *fiber.Ctx) (*service.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
		return nil, nil
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if fh.Size == 0 && fh.Filename == "" {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &service.ImageUpload{Filename: fh.Filename, Content: content}, nil
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// indexCache serves the index page through the shared page store while the
// index_cache flag is on for the viewer.
func (s *Server) indexCache() fiber.Handler {
	cached := cache.PageCache(s.pages, cache.IndexPagePrefix, cache.IndexPageTTL)
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.IndexCache, currentUserID(c)) {
			return c.Next()
		}
		return cached(c)
	}
}

// signupEnabled hides the signup pages while the signup flag is off.
func (s *Server) signupEnabled(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.Signup, 0) {
		return fiber.ErrNotFound
	}
	return c.Next()
}
