package memory

import (
	"context"
	"strings"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.clashes(user) {
		return repository.ErrDuplicate
	}
	ensureID(&user.ID)
	r.s.users[user.ID] = copyOf(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOf(u), nil
}

func (r *UserRepository) GetByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email := strings.ToLower(identifier)
	for _, u := range r.s.users {
		if u.Email == email || (u.Phone != "" && u.Phone == identifier) {
			return copyOf(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.clashes(user) {
		return repository.ErrDuplicate
	}
	next := copyOf(user)
	next.RatingSum, next.RatingCount, next.CreatedAt = cur.RatingSum, cur.RatingCount, cur.CreatedAt
	r.s.users[user.ID] = next
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, copyOf(u))
	}
	newestFirst(out, func(u *models.User) (time.Time, primitive.ObjectID) { return u.CreatedAt, u.ID })
	return out, nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) AddDeliveryRating(_ context.Context, id primitive.ObjectID, rating int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RatingSum += rating
	u.RatingCount++
	return nil
}

// clashes mirrors the unique email and phone indexes.
func (r *UserRepository) clashes(user *models.User) bool {
	for id, u := range r.s.users {
		if id == user.ID {
			continue
		}
		if u.Email == user.Email || (user.Phone != "" && u.Phone == user.Phone) {
			return true
		}
	}
	return false
}
