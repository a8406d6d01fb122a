package server

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/validation"
	"yatube/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

const baseLayout = "layouts/base"

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

func newViews() *html.Engine {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	engine.AddFuncMap(template.FuncMap{
		"date":         formatDate,
		"linebreaksbr": linebreaksbr,
		"fieldError":   fieldError,
	})
	return engine
}

// formatDate renders t as "5 марта 2024".
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2") + " " + monthsGenitive[t.Month()-1] + " " + t.Format("2006")
}

func linebreaksbr(s string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func fieldError(errs validation.FieldErrors, field string) string {
	return errs[field]
}

// render executes a page template inside the base layout. Every page gets the
// current session as "user" (absent for anonymous visitors).
func (s *Server) render(c *fiber.Ctx, name string, bind fiber.Map) error {
	if claims := middleware.CurrentSession(c); claims != nil {
		bind["user"] = claims
	}
	bind["signup_enabled"] = s.featureFlags.Enabled(featureflags.Signup, currentUserID(c))
	return c.Render(name, bind)
}

func (s *Server) renderStatus(c *fiber.Ctx, status int, name string, bind fiber.Map) error {
	c.Status(status)
	return s.render(c, name, bind)
}

// errorHandler turns handler errors into pages: NOT_FOUND and unmatched routes
// render core/404, other client errors are plain text, everything else is
// logged and renders core/500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case models.IsNotFound(err):
		code = fiber.StatusNotFound
	case errors.As(err, &fe):
		code = fe.Code
	}

	switch {
	case code == fiber.StatusNotFound:
		return s.renderStatus(c, code, "core/404", fiber.Map{"path": c.Path()})
	case code >= fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		if rerr := s.renderStatus(c, code, "core/500", fiber.Map{}); rerr != nil {
			return c.Status(code).SendString(fiber.ErrInternalServerError.Message)
		}
		return nil
	default:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(code).SendString(err.Error())
	}
}
