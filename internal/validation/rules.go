// Package validation holds the form structs submitted to the HTML views and the
// rules for usernames, passwords and group slugs.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxSlugLength     = 50
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
)

// ValidateGroupSlug checks a group slug: letters, digits, hyphens and underscores,
// at most 50 characters, not starting or ending with a hyphen.
func ValidateGroupSlug(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("slug must not exceed %d characters", maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return errors.New("slug can only contain letters, numbers, underscores and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return errors.New("slug cannot start or end with a hyphen")
	}
	return nil
}

// ValidateUsername checks the username character set (letters, digits and @.+-_)
// and its length of 1 to 150 characters.
func ValidateUsername(username string) error {
	if username == "" || utf8.RuneCountInString(username) > 150 {
		return errors.New("username must be between 1 and 150 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may contain only letters, numbers, and @/./+/-/_ characters")
	}
	return nil
}

// ValidatePassword checks that a password is 8 to 128 characters long and not entirely numeric.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if n > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return errors.New("password is entirely numeric")
	}
	return nil
}
