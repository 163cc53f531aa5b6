package memory

import (
	"context"
	"strings"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ShopRepository struct {
	s *Store
}

func (r *ShopRepository) Create(_ context.Context, shop *models.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ensureID(&shop.ID)
	if _, ok := r.s.shops[shop.ID]; ok {
		return repository.ErrDuplicate
	}
	shop.RecomputeRating()
	r.s.shops[shop.ID] = copyShop(shop)
	return nil
}

func (r *ShopRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shop, ok := r.s.shops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyShop(shop), nil
}

func (r *ShopRepository) List(_ context.Context, f models.ShopFilter) ([]*models.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Shop{}
	for _, shop := range r.s.shops {
		if f.Status != "" && shop.Status != f.Status {
			continue
		}
		if !f.OwnerID.IsZero() && shop.OwnerID != f.OwnerID {
			continue
		}
		if f.Wilaya != "" && !strings.EqualFold(shop.Wilaya, f.Wilaya) {
			continue
		}
		if f.City != "" && !strings.EqualFold(shop.City, f.City) {
			continue
		}
		if f.Search != "" && !containsFold(shop.Name, f.Search) {
			continue
		}
		out = append(out, copyShop(shop))
	}
	newestFirst(out, func(s *models.Shop) (time.Time, primitive.ObjectID) { return s.CreatedAt, s.ID })
	return out, nil
}

func (r *ShopRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Shop, error) {
	return r.List(ctx, models.ShopFilter{OwnerID: ownerID})
}

func (r *ShopRepository) Update(_ context.Context, shop *models.Shop) error {
	return r.mutate(shop.ID, func(cur *models.Shop) {
		cur.Name = shop.Name
		cur.Logo = shop.Logo
		cur.Banner = shop.Banner
		cur.Wilaya = shop.Wilaya
		cur.City = shop.City
		cur.SocialMedia = shop.SocialMedia
		cur.UpdatedAt = shop.UpdatedAt
	})
}

func (r *ShopRepository) SetStatus(_ context.Context, id primitive.ObjectID, status models.ShopStatus) error {
	return r.mutate(id, func(cur *models.Shop) {
		cur.Status = status
		cur.UpdatedAt = time.Now()
	})
}

func (r *ShopRepository) AddFollower(_ context.Context, shopID, userID primitive.ObjectID) (bool, error) {
	added := false
	err := r.mutate(shopID, func(cur *models.Shop) {
		if !cur.HasFollower(userID) {
			cur.Followers = append(cur.Followers, userID)
			added = true
		}
	})
	return added, err
}

func (r *ShopRepository) RemoveFollower(_ context.Context, shopID, userID primitive.ObjectID) error {
	return r.mutate(shopID, func(cur *models.Shop) {
		kept := cur.Followers[:0]
		for _, f := range cur.Followers {
			if f != userID {
				kept = append(kept, f)
			}
		}
		cur.Followers = kept
	})
}

func (r *ShopRepository) AddEmployee(_ context.Context, shopID primitive.ObjectID, emp models.Employee) (bool, error) {
	added := false
	err := r.mutate(shopID, func(cur *models.Shop) {
		if !cur.IsEmployee(emp.UserID) {
			cur.Employees = append(cur.Employees, emp)
			added = true
		}
	})
	return added, err
}

func (r *ShopRepository) RemoveEmployee(_ context.Context, shopID, userID primitive.ObjectID) (bool, error) {
	removed := false
	err := r.mutate(shopID, func(cur *models.Shop) {
		kept := cur.Employees[:0]
		for _, e := range cur.Employees {
			if e.UserID == userID {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		cur.Employees = kept
	})
	return removed, err
}

func (r *ShopRepository) AddRating(_ context.Context, shopID primitive.ObjectID, rating models.Rating) (bool, error) {
	added := false
	err := r.mutate(shopID, func(cur *models.Shop) {
		if cur.HasRating(rating.UserID, rating.OrderID) {
			return
		}
		cur.Ratings = append(cur.Ratings, rating)
		cur.RecomputeRating()
		added = true
	})
	return added, err
}

func (r *ShopRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shops[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.shops, id)
	return nil
}

func (r *ShopRepository) DeleteByOwner(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, shop := range r.s.shops {
		if shop.OwnerID == ownerID {
			delete(r.s.shops, id)
			n++
		}
	}
	return n, nil
}

func (r *ShopRepository) mutate(id primitive.ObjectID, fn func(*models.Shop)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.shops[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(cur)
	return nil
}
