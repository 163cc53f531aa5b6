package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	trendingLimit    = 10
	trendingCacheKey = "products:trending"
)

type ProductService struct {
	deps Deps
	log  *zap.Logger
}

type ProductInput struct {
	ShopID            primitive.ObjectID
	Name              string
	Description       string
	Price             float64
	Stock             int
	LowStockThreshold int
	CategoryID        primitive.ObjectID
	Image             string
	Variants          []models.Variant
}

// ProductUpdate applies its non-nil fields.
type ProductUpdate struct {
	Name              *string
	Description       *string
	Price             *float64
	Stock             *int
	LowStockThreshold *int
	CategoryID        *primitive.ObjectID
	Image             *string
	Variants          *[]models.Variant
}

func (s *ProductService) List(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	q.Normalize()
	products, total, err := s.deps.Repos.Products.List(ctx, q)
	if err != nil {
		return nil, Internal("failed to list products", err)
	}
	return models.NewProductPage(products, total, q), nil
}

// Get counts a view before returning the product. A failed counter update
// does not fail the read.
func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if err := s.deps.Repos.Products.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("product")
		}
		s.log.Warn("Failed to count product view", zap.String("product_id", id.Hex()), zap.Error(err))
	}
	p, err := s.deps.Repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "product")
	}
	return p, nil
}

// Trending ranks by order count, then views.
func (s *ProductService) Trending(ctx context.Context) ([]*models.Product, error) {
	products, err := cached(ctx, s.deps, trendingCacheKey, func() ([]*models.Product, error) {
		return s.deps.Repos.Products.Trending(ctx, trendingLimit)
	})
	if err != nil {
		return nil, Internal("failed to load trending products", err)
	}
	return products, nil
}

func (s *ProductService) Create(ctx context.Context, caller *models.User, in ProductInput) (*models.Product, error) {
	shop, err := s.targetShop(ctx, caller, in.ShopID)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now()
	p := &models.Product{
		ShopID:            shop.ID,
		CreatedBy:         caller.ID,
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Price:             in.Price,
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		CategoryID:        in.CategoryID,
		Image:             in.Image,
		Variants:          in.Variants,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := p.Validate(); err != nil {
		return nil, Invalid("%s", err)
	}
	if err := s.deps.Repos.Products.Create(ctx, p); err != nil {
		return nil, persist(err, "product")
	}

	msg := fmt.Sprintf("%s added a new product: %s", shop.Name, p.Name)
	for _, follower := range shop.Followers {
		s.deps.Notifier.Notify(follower, msg)
	}
	invalidate(ctx, s.deps, trendingCacheKey)

	s.log.Info("Product created",
		zap.String("product_id", p.ID.Hex()),
		zap.String("shop_id", shop.ID.Hex()),
		zap.Int("followers_notified", len(shop.Followers)))
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, caller *models.User, id primitive.ObjectID, in ProductUpdate) (*models.Product, error) {
	p, err := s.managed(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Variants != nil {
		p.Variants = *in.Variants
	}
	if err := p.Validate(); err != nil {
		return nil, Invalid("%s", err)
	}
	p.UpdatedAt = s.deps.Now()
	p.RecomputeRating()

	if err := s.deps.Repos.Products.Update(ctx, p); err != nil {
		return nil, persist(err, "product")
	}
	invalidate(ctx, s.deps, trendingCacheKey)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, caller *models.User, id primitive.ObjectID) error {
	if _, err := s.managed(ctx, caller, id); err != nil {
		return err
	}
	if err := s.deps.Repos.Products.Delete(ctx, id); err != nil {
		return persist(err, "product")
	}
	invalidate(ctx, s.deps, trendingCacheKey)
	return nil
}

// managed loads the product and re-checks, through the product's stored
// shop, that the caller may change it.
func (s *ProductService) managed(ctx context.Context, caller *models.User, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.deps.Repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "product")
	}
	shop, err := s.deps.Repos.Shops.GetByID(ctx, p.ShopID)
	if err != nil {
		return nil, lookup(err, "shop")
	}
	if !shop.CanManageProducts(caller.ID) {
		return nil, Forbidden("not allowed to manage this shop's products")
	}
	return p, nil
}

// targetShop resolves the shop a new product goes to: the requested one, or
// the caller's only shop when none is named.
func (s *ProductService) targetShop(ctx context.Context, caller *models.User, shopID primitive.ObjectID) (*models.Shop, error) {
	if !shopID.IsZero() {
		shop, err := s.deps.Repos.Shops.GetByID(ctx, shopID)
		if err != nil {
			return nil, lookup(err, "shop")
		}
		if !shop.CanManageProducts(caller.ID) {
			return nil, Forbidden("not allowed to add products to this shop")
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
