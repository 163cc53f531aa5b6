package memory

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Carts are keyed by their owner.
type CartRepository struct {
	s *Store
}

func (r *CartRepository) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCart(c), nil
}

func (r *CartRepository) Save(_ context.Context, cart *models.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if cur, ok := r.s.carts[cart.UserID]; ok {
		cart.ID = cur.ID
	}
	ensureID(&cart.ID)
	r.s.carts[cart.UserID] = copyCart(cart)
	return nil
}

func (r *CartRepository) Clear(_ context.Context, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c, ok := r.s.carts[userID]; ok {
		c.Items = []models.CartItem{}
		c.UpdatedAt = time.Now()
	}
	return nil
}
