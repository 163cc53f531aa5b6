package service

import (
	"context"
	"errors"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartService struct {
	deps Deps
}

// Get returns the caller's cart, empty when none was saved yet.
func (s *CartService) Get(ctx context.Context, caller *models.User) (*models.Cart, error) {
	cart, err := s.deps.Repos.Carts.Get(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &models.Cart{UserID: caller.ID, Items: []models.CartItem{}}, nil
		}
		return nil, Internal("failed to load cart", err)
	}
	return cart, nil
}

// SetItem sets the quantity of a product+variant line. A quantity of zero
// or less removes the line.
func (s *CartService) SetItem(ctx context.Context, caller *models.User, item models.CartItem) (*models.Cart, error) {
	if item.Quantity > 0 {
		p, err := s.deps.Repos.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, lookup(err, "product")
		}
		if !p.HasVariant(item.Variant) {
			return nil, Invalid("product %s has no such variant", p.Name)
		}
	}
	if item.Variant.IsZero() {
		item.Variant = nil
	}

	cart, err := s.Get(ctx, caller)
	if err != nil {
		return nil, err
	}
	cart.SetItem(item)
	return s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, caller *models.User, productID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.Get(ctx, caller)
	if err != nil {
		return nil, err
	}
	cart.RemoveProduct(productID)
	return s.save(ctx, cart)
}

func (s *CartService) Clear(ctx context.Context, caller *models.User) error {
	if err := s.deps.Repos.Carts.Clear(ctx, caller.ID); err != nil {
		return Internal("failed to clear cart", err)
	}
	return nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.UpdatedAt = s.deps.Now()
	if err := s.deps.Repos.Carts.Save(ctx, cart); err != nil {
		return nil, Internal("failed to save cart", err)
	}
	return cart, nil
}
