package database

import (
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_CoversDomain(t *testing.T) {
	var names []string
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.User:
			names = append(names, "user")
		case *models.Group:
			names = append(names, "group")
		case *models.Post:
			names = append(names, "post")
		case *models.Comment:
			names = append(names, "comment")
		case *models.Follow:
			names = append(names, "follow")
		}
	}
	assert.Equal(t, []string{"user", "group", "post", "comment", "follow"}, names)
}
