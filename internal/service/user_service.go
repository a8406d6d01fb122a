package service

import (
	"context"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const msgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

type UserService struct {
	userRepo repository.UserRepository
	cost     int
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// Signup registers a user from the signup form. Usernames and emails are unique,
// compared case-insensitively.
func (s *UserService) Signup(ctx context.Context, form validation.SignupForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	if err := checkForm(&form); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, form.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalidForm(validation.FieldErrors{"username": "A user with that username already exists."})
	}
	taken, err = s.userRepo.ExistsByEmail(ctx, form.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalidForm(validation.FieldErrors{"email": "A user with that email already exists."})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		Password:  string(hashed),
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks the login form against the stored bcrypt hash.
// Unknown users and wrong passwords both yield a VALIDATION_ERROR on the form.
func (s *UserService) Authenticate(ctx context.Context, form validation.LoginForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	if err := checkForm(&form); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, form.Username)
	if models.IsNotFound(err) {
		return nil, invalidForm(validation.FieldErrors{"__all__": msgInvalidLogin})
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		return nil, invalidForm(validation.FieldErrors{"__all__": msgInvalidLogin})
	}
	return user, nil
}
