package memory

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CouponRepository struct {
	s *Store
}

func (r *CouponRepository) Create(_ context.Context, c *models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.coupons {
		if existing.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	ensureID(&c.ID)
	r.s.coupons[c.ID] = copyOf(c)
	return nil
}

func (r *CouponRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOf(c), nil
}

func (r *CouponRepository) FindByCode(_ context.Context, code string, shopID primitive.ObjectID) (*models.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.coupons {
		if c.Code == code && c.ShopID == shopID {
			return copyOf(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CouponRepository) ListByShops(_ context.Context, shopIDs []primitive.ObjectID) ([]*models.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Coupon{}
	for _, c := range r.s.coupons {
		if inIDs(c.ShopID, shopIDs) {
			out = append(out, copyOf(c))
		}
	}
	newestFirst(out, func(c *models.Coupon) (time.Time, primitive.ObjectID) { return c.CreatedAt, c.ID })
	return out, nil
}

func (r *CouponRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}
