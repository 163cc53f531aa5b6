package memory

import (
	"context"
	"sort"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
)

type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) Create(_ context.Context, c *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.categories {
		if existing.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	ensureID(&c.ID)
	r.s.categories[c.ID] = copyOf(c)
	return nil
}

func (r *CategoryRepository) List(_ context.Context) ([]*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, copyOf(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
