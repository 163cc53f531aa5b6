package memory

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReviewRepository struct {
	s *Store
}

func (r *ReviewRepository) Create(_ context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.reviews {
		if sameReview(existing, review.UserID, review.OrderID, review.Target) {
			return repository.ErrDuplicate
		}
	}
	ensureID(&review.ID)
	r.s.reviews[review.ID] = copyOf(review)
	return nil
}

func (r *ReviewRepository) Exists(_ context.Context, userID, orderID primitive.ObjectID, target models.Target) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, existing := range r.s.reviews {
		if sameReview(existing, userID, orderID, target) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ReviewRepository) ListByTarget(_ context.Context, target models.Target) ([]*models.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Review{}
	for _, rv := range r.s.reviews {
		if rv.Target == target {
			out = append(out, copyOf(rv))
		}
	}
	newestFirst(out, func(rv *models.Review) (time.Time, primitive.ObjectID) { return rv.CreatedAt, rv.ID })
	return out, nil
}

func (r *ReviewRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reviews, id)
	return nil
}

func sameReview(rv *models.Review, userID, orderID primitive.ObjectID, target models.Target) bool {
	return rv.UserID == userID && rv.OrderID == orderID && rv.Target == target
}
