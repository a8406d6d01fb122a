package server

import (
	"github.com/gofiber/fiber/v2"
)

const titleFollow = "Подписки пользователя"

// FollowIndex renders posts by the authors the current user follows.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	res, err := s.postRepo.ListFollowedAuthorsPosts(c.UserContext(), currentUserID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/follow", fiber.Map{
		"title":    titleFollow,
		"page_obj": res.Items,
		"page":     res.Page,
	})
}

// ProfileFollow subscribes the current user to the author. Following yourself
// is ignored and repeated follows keep a single record.
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(author.Username))
}

// ProfileUnfollow removes the subscription; it is a 404 when there is none.
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(author.Username))
}
