package server

import (
	"strconv"

	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const titleIndex = "Последние обновления на сайте"

// Index renders the newest posts of the whole site.
func (s *Server) Index(c *fiber.Ctx) error {
	res, err := s.postRepo.List(c.UserContext(), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/index", fiber.Map{
		"title":    titleIndex,
		"page_obj": res.Items,
		"page":     res.Page,
	})
}

// GroupPosts renders the posts of one group.
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	group, err := s.groupRepo.GetBySlug(ctx, c.Params("slug"))
	if err != nil {
		return err
	}
	res, err := s.postRepo.ListByGroup(ctx, group.ID, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/group_list", fiber.Map{
		"title":    "Записи сообщества " + group.Title,
		"group":    group,
		"page_obj": res.Items,
		"page":     res.Page,
	})
}

// Profile renders an author's posts together with the viewer's follow state.
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := s.userRepo.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return err
	}
	res, err := s.postRepo.ListByAuthor(ctx, author.ID, c.Query("page"))
	if err != nil {
		return err
	}
	following, err := s.followService.IsFollowing(ctx, currentUserID(c), author.ID)
	if err != nil {
		return err
	}
	followers, err := s.followService.FollowersCount(ctx, author.ID)
	if err != nil {
		return err
	}
	return s.render(c, "posts/profile", fiber.Map{
		"title":       "Профайл пользователя " + author.FullName(),
		"author":      author,
		"posts_count": res.Page.Total,
		"followers":   followers,
		"following":   following,
		"page_obj":    res.Items,
		"page":        res.Page,
	})
}

// PostDetail renders one post with its comments and an empty comment form.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return err
	}
	postsCount, err := s.postRepo.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return err
	}
	comments, err := s.commentService.ListComments(ctx, post.ID)
	if err != nil {
		return err
	}
	return s.render(c, "posts/post_detail", fiber.Map{
		"title":       "Пост " + post.String(),
		"post":        post,
		"posts_count": postsCount,
		"form":        validation.CommentForm{},
		"comments":    comments,
	})
}

// CreatePostForm renders an empty post form.
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, fiber.StatusOK, validation.PostForm{}, nil, nil)
}

// CreatePost publishes a post by the current user and redirects to their profile.
// An invalid form is rendered again with its errors.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}
	image, err := readImage(c)
	if err != nil {
		return err
	}

	_, err = s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Form:     form,
		Image:    image,
	})
	if fields, ok := formErrors(err); ok {
		return s.renderPostForm(c, fiber.StatusOK, form, nil, fields)
	}
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(currentUsername(c)))
}

// EditPostForm renders the post form filled with the current post. Only the
// author may edit; everyone else is sent back to the post page.
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	if post.AuthorID != currentUserID(c) {
		return c.Redirect(postURL(post.ID))
	}

	form := validation.PostForm{Text: post.Text}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return s.renderPostForm(c, fiber.StatusOK, form, post, nil)
}

// EditPost saves the author's changes and redirects to the post page.
func (s *Server) EditPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return err
	}
	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}
	image, err := readImage(c)
	if err != nil {
		return err
	}

	post, err := s.postService.EditPost(ctx, service.EditPostInput{
		UserID: currentUserID(c),
		PostID: id,
		Form:   form,
		Image:  image,
	})
	switch {
	case models.IsUnauthorized(err):
		return c.Redirect(postURL(id))
	case err != nil:
		fields, ok := formErrors(err)
		if !ok {
			return err
		}
		current, gerr := s.postService.GetPost(ctx, id)
		if gerr != nil {
			return gerr
		}
		return s.renderPostForm(c, fiber.StatusOK, form, current, fields)
	}
	return c.Redirect(postURL(post.ID))
}

// renderPostForm renders create_post; post is nil when creating.
func (s *Server) renderPostForm(c *fiber.Ctx, status int, form validation.PostForm, post *models.Post, errs validation.FieldErrors) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	if errs == nil {
		errs = validation.FieldErrors{}
	}
	title := "Новый пост"
	if post != nil {
		title = "Редактировать пост"
	}
	return s.renderStatus(c, status, "posts/create_post", fiber.Map{
		"title":   title,
		"form":    form,
		"groups":  groups,
		"is_edit": post != nil,
		"post":    post,
		"errors":  errs,
	})
}

// AddComment stores a comment and always returns to the post page. Invalid
// comments are dropped without feedback.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return err
	}
	var form validation.CommentForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}

	_, err = s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		UserID: currentUserID(c),
		PostID: id,
		Form:   form,
	})
	if _, invalid := formErrors(err); err != nil && !invalid {
		return err
	}
	return c.Redirect(postURL(id))
}
