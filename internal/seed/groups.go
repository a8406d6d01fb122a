package seed

import (
	"fmt"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInGroup is a community created on every seeded database.
type BuiltInGroup struct {
	Title       string
	Slug        string
	Description string
}

// BuiltInGroups defines the default communities.
var BuiltInGroups = []BuiltInGroup{
	{Title: "Лев Толстой – зеркало русской революции", Slug: "leo", Description: "Группа поклонников графа."},
	{Title: "Котики", Slug: "cats", Description: "Всё о котах и кошках."},
	{Title: "Путешествия", Slug: "travel", Description: "Заметки из поездок."},
	{Title: "Книги", Slug: "books", Description: "Что читать и что обсуждать."},
	{Title: "Кино", Slug: "movies", Description: "Фильмы, сериалы, рецензии."},
	{Title: "Разработка", Slug: "development", Description: "Код, инструменты и практики."},
}

// Groups upserts the built-in groups by slug and returns them with ids set.
func Groups(db *gorm.DB) ([]*models.Group, error) {
	out := make([]*models.Group, 0, len(BuiltInGroups))
	for _, item := range BuiltInGroups {
		group := &models.Group{
			Title:       item.Title,
			Slug:        item.Slug,
			Description: item.Description,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
			}).Create(group).Error; err != nil {
				return err
			}
			// Some dialects leave the id unset when the row already existed.
			if group.ID == 0 {
				return tx.Where("slug = ?", item.Slug).First(group).Error
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("seed built-in group %s: %w", item.Slug, err)
		}
		out = append(out, group)
	}
	return out, nil
}
