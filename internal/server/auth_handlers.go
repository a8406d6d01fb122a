package server

import (
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type formField struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

func signupFields(form validation.SignupForm, errs validation.FieldErrors) []formField {
	return []formField{
		{"first_name", "Имя", "text", form.FirstName, errs["first_name"]},
		{"last_name", "Фамилия", "text", form.LastName, errs["last_name"]},
		{"username", "Имя пользователя", "text", form.Username, errs["username"]},
		{"email", "Адрес электронной почты", "email", form.Email, errs["email"]},
		{"password", "Пароль", "password", "", errs["password"]},
		{"password_confirm", "Подтверждение пароля", "password", "", errs["password_confirm"]},
	}
}

// SignupForm renders the registration page.
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, "auth/signup", fiber.Map{
		"title":  "Регистрация",
		"fields": signupFields(validation.SignupForm{}, nil),
	})
}

// Signup creates an account, logs the new user in and redirects home.
func (s *Server) Signup(c *fiber.Ctx) error {
	var form validation.SignupForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}

	user, err := s.userService.Signup(c.UserContext(), form)
	if fields, ok := formErrors(err); ok {
		return s.render(c, "auth/signup", fiber.Map{
			"title":  "Регистрация",
			"fields": signupFields(form, fields),
		})
	}
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(c.UserContext(), "user signed up", slog.Uint64("user_id", uint64(user.ID)))
	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/")
}

// LoginForm renders the login page, keeping the "next" target.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, "auth/login", fiber.Map{
		"title":  "Войти",
		"form":   validation.LoginForm{},
		"next":   c.Query("next"),
		"errors": validation.FieldErrors{},
	})
}

// Login checks the credentials, sets the session cookie and redirects to the
// local "next" path or home.
func (s *Server) Login(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}
	next := c.FormValue("next")

	user, err := s.userService.Authenticate(c.UserContext(), form)
	if fields, ok := formErrors(err); ok {
		form.Password = ""
		return s.render(c, "auth/login", fiber.Map{
			"title":  "Войти",
			"form":   form,
			"next":   next,
			"errors": fields,
		})
	}
	if err != nil {
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(middleware.SafeNext(next, "/"))
}

// Logout revokes the session token and clears the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.CurrentSession(c); claims != nil {
		if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session revoke failed", slog.String("error", err.Error()))
		}
	}
	c.Cookie(middleware.ExpiredSessionCookie())
	return c.Redirect("/")
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, claims, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return err
	}
	c.Cookie(s.sessions.Cookie(token, claims, s.config.IsProduction()))
	return nil
}
