package service

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CouponService struct {
	deps Deps
}

type CouponInput struct {
	ShopID    primitive.ObjectID
	Code      string
	Discount  float64
	ExpiresAt *time.Time
}

func (s *CouponService) Create(ctx context.Context, caller *models.User, in CouponInput) (*models.Coupon, error) {
	code := models.NormalizeCouponCode(in.Code)
	if code == "" {
		return nil, Invalid("coupon code is required")
	}
	if !models.ValidDiscount(in.Discount) {
		return nil, Invalid("discount must be greater than 0 and at most 100")
	}

	shop, err := s.ownedShop(ctx, caller, in.ShopID)
	if err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		Code:      code,
		Discount:  in.Discount,
		ExpiresAt: in.ExpiresAt,
		ShopID:    shop.ID,
		CreatedAt: s.deps.Now(),
	}
	if err := s.deps.Repos.Coupons.Create(ctx, coupon); err != nil {
		return nil, persist(err, "coupon")
	}
	return coupon, nil
}

// ListForOwner returns the coupons of every shop the caller owns.
func (s *CouponService) ListForOwner(ctx context.Context, caller *models.User) ([]*models.Coupon, error) {
	shops, err := s.deps.Repos.Shops.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, Internal("failed to list shops", err)
	}
	coupons, err := s.deps.Repos.Coupons.ListByShops(ctx, shopIDs(shops))
	if err != nil {
		return nil, Internal("failed to list coupons", err)
	}
	return coupons, nil
}

func (s *CouponService) Delete(ctx context.Context, caller *models.User, id primitive.ObjectID) error {
	coupon, err := s.deps.Repos.Coupons.GetByID(ctx, id)
	if err != nil {
		return lookup(err, "coupon")
	}
	shop, err := s.deps.Repos.Shops.GetByID(ctx, coupon.ShopID)
	if err != nil {
		return lookup(err, "shop")
	}
	if !shop.IsOwner(caller.ID) {
		return Forbidden("only the shop owner can delete its coupons")
	}
	if err := s.deps.Repos.Coupons.Delete(ctx, id); err != nil {
		return persist(err, "coupon")
	}
	return nil
}

func (s *CouponService) ownedShop(ctx context.Context, caller *models.User, shopID primitive.ObjectID) (*models.Shop, error) {
	if !shopID.IsZero() {
		shop, err := s.deps.Repos.Shops.GetByID(ctx, shopID)
		if err != nil {
			return nil, lookup(err, "shop")
		}
		if !shop.IsOwner(caller.ID) {
			return nil, Forbidden("only the shop owner can create coupons")
		}
		return shop, nil
	}

	shops, err := s.deps.Repos.Shops.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, Internal("failed to list shops", err)
	}
	switch len(shops) {
	case 0:
		return nil, NotFound("shop")
	case 1:
		return shops[0], nil
	}
	return nil, Invalid("shop_id is required when you own more than one shop")
}
