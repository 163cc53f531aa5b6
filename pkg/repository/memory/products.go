package memory

import (
	"cmp"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ensureID(&p.ID)
	if _, ok := r.s.products[p.ID]; ok {
		return repository.ErrDuplicate
	}
	p.RecomputeRating()
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r *ProductRepository) IncrementViews(_ context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(p *models.Product) { p.Views++ })
}

func (r *ProductRepository) List(_ context.Context, q models.ProductQuery) ([]*models.Product, int64, error) {
	q.Normalize()

	r.s.mu.RLock()
	matched := []*models.Product{}
	for _, p := range r.s.products {
		if matches(p, q) {
			matched = append(matched, copyProduct(p))
		}
	}
	r.s.mu.RUnlock()

	sortProducts(matched, q.SortField, q.SortDesc)

	total := int64(len(matched))
	start := q.Skip()
	if start < 0 || start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *ProductRepository) Trending(_ context.Context, limit int64) ([]*models.Product, error) {
	r.s.mu.RLock()
	out := make([]*models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, copyProduct(p))
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepository) Update(_ context.Context, p *models.Product) error {
	return r.mutate(p.ID, func(cur *models.Product) {
		cur.Name = p.Name
		cur.Description = p.Description
		cur.Price = p.Price
		cur.Stock = p.Stock
		cur.LowStockThreshold = p.LowStockThreshold
		cur.CategoryID = p.CategoryID
		cur.Image = p.Image
		cur.Variants = append([]models.Variant{}, p.Variants...)
		cur.UpdatedAt = p.UpdatedAt
		cur.RecomputeRating()
	})
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) DeleteByShops(_ context.Context, shopIDs []primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, p := range r.s.products {
		if inIDs(p.ShopID, shopIDs) {
			delete(r.s.products, id)
			n++
		}
	}
	return n, nil
}

func (r *ProductRepository) CountByShops(_ context.Context, shopIDs []primitive.ObjectID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, p := range r.s.products {
		if inIDs(p.ShopID, shopIDs) {
			n++
		}
	}
	return n, nil
}

func (r *ProductRepository) DecrementStock(_ context.Context, id primitive.ObjectID, quantity int) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Stock < quantity {
		return nil, repository.ErrConflict
	}
	p.Stock -= quantity
	p.OrderCount += int64(quantity)
	p.UpdatedAt = time.Now()
	return copyProduct(p), nil
}

func (r *ProductRepository) RestoreStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	return r.mutate(id, func(p *models.Product) {
		p.Stock += quantity
		p.OrderCount -= int64(quantity)
		p.UpdatedAt = time.Now()
	})
}

func (r *ProductRepository) AddRating(_ context.Context, id primitive.ObjectID, rating models.Rating) (bool, error) {
	added := false
	err := r.mutate(id, func(p *models.Product) {
		if p.HasRating(rating.UserID, rating.OrderID) {
			return
		}
		p.Ratings = append(p.Ratings, rating)
		p.RecomputeRating()
		added = true
	})
	return added, err
}

func (r *ProductRepository) mutate(id primitive.ObjectID, fn func(*models.Product)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	return nil
}

func matches(p *models.Product, q models.ProductQuery) bool {
	if !q.CategoryID.IsZero() && p.CategoryID != q.CategoryID {
		return false
	}
	if !q.ShopID.IsZero() {
		if p.ShopID != q.ShopID {
			return false
		}
	} else if q.ShopIDs != nil && !inIDs(p.ShopID, q.ShopIDs) {
		return false
	}
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	if q.Search != "" && !containsFold(p.Name, q.Search) && !containsFold(p.Description, q.Search) {
		return false
	}
	return true
}

func sortProducts(items []*models.Product, field string, desc bool) {
	by := func(a, b *models.Product) int {
		switch field {
		case "price":
			return cmp.Compare(a.Price, b.Price)
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "avg_rating":
			return cmp.Compare(a.AvgRating, b.AvgRating)
		case "order_count":
			return cmp.Compare(a.OrderCount, b.OrderCount)
		case "views":
			return cmp.Compare(a.Views, b.Views)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	sort.Slice(items, func(i, j int) bool {
		c := by(items[i], items[j])
		if c == 0 {
			c = strings.Compare(items[i].ID.Hex(), items[j].ID.Hex())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
