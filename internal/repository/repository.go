// Package repository implements the data access layer: named, ordered and
// paginated queries over the domain models.
package repository

import (
	"context"
	"errors"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"

	"gorm.io/gorm"
)

// paginate counts the rows matched by base, resolves the requested page and loads
// it in order. base must be a fresh session (see gorm.Session) so that Count does
// not leak into the page query.
func paginate[T any](
	ctx context.Context,
	base *gorm.DB,
	query, table, order, rawPage string,
	preloads ...string,
) (result *pagination.Result[T], err error) {
	ctx, span := observability.StartQuerySpan(ctx, query, table)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery(query, table)()

	var total int64
	if err = base.WithContext(ctx).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	page := pagination.New(total, rawPage)
	q := base.WithContext(ctx).Order(order).Limit(page.Limit()).Offset(page.Offset())
	for _, p := range preloads {
		q = q.Preload(p)
	}

	items := make([]T, 0, page.Limit())
	if err = q.Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &pagination.Result[T]{Items: items, Page: page}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND AppError and wraps anything else.
func notFoundOr(err error, resource string, id interface{}) error {
	if isNotFound(err) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
