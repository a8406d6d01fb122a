package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

// FollowService manages subscriptions of readers to authors.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// Follow subscribes userID to the author named username and returns the author.
// Following yourself is a no-op; following twice keeps a single relation.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return author, nil
	}

	_, created, err := s.followRepo.GetOrCreate(ctx, userID, author.ID)
	if err != nil {
		return nil, err
	}
	if created {
		observability.FollowEvents.WithLabelValues("follow").Inc()
	}
	return author, nil
}

// Unfollow removes the subscription. It is NOT_FOUND when the author or the
// subscription does not exist.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Delete(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	observability.FollowEvents.WithLabelValues("unfollow").Inc()
	return author, nil
}

// FollowersCount returns how many users follow authorID.
func (s *FollowService) FollowersCount(ctx context.Context, authorID uint) (int64, error) {
	return s.followRepo.CountFollowers(ctx, authorID)
}

// IsFollowing reports whether userID follows authorID. Anonymous viewers (zero) follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.followRepo.Exists(ctx, userID, authorID)
}
