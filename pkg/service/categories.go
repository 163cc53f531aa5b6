package service

import (
	"context"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.uber.org/zap"
)

const categoriesCacheKey = "categories"

type CategoryService struct {
	deps Deps
	log  *zap.Logger
}

func (s *CategoryService) Create(ctx context.Context, caller *models.User, name string) (*models.Category, error) {
	if !caller.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("category name is required")
	}

	c := &models.Category{Name: name}
	if err := s.deps.Repos.Categories.Create(ctx, c); err != nil {
		return nil, persist(err, "category")
	}
	invalidate(ctx, s.deps, categoriesCacheKey)

	s.log.Info("Category created", zap.String("category_id", c.ID.Hex()), zap.String("name", name))
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	list, err := cached(ctx, s.deps, categoriesCacheKey, func() ([]*models.Category, error) {
		return s.deps.Repos.Categories.List(ctx)
	})
	if err != nil {
		return nil, Internal("failed to list categories", err)
	}
	return list, nil
}
