package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGroupSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{"simple", "cats", true},
		{"with number", "cats-2", true},
		{"underscore", "pc_gaming", true},
		{"uppercase", "Movies", true},
		{"maximum length", strings.Repeat("a", 50), true},
		{"too long", strings.Repeat("a", 51), false},
		{"empty", "", false},
		{"space", "pc gaming", false},
		{"symbol", "pc!gaming", false},
		{"cyrillic", "коты", false},
		{"leading hyphen", "-linux", false},
		{"trailing hyphen", "linux-", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateGroupSlug(tc.slug)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "s3cret-pass", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Length", strings.Repeat("b", 128), false},
		{"Too Short", "abc1", true},
		{"Too Long", strings.Repeat("b", 129), true},
		{"Entirely Numeric", "1234567890", true},
		{"Unicode Characters", "пароль-надёжный", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "leo.tolstoy+1@x", false},
		{"Single Char", "a", false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("u", 151), true},
		{"Space", "leo tolstoy", true},
		{"Slash", "leo/tolstoy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
