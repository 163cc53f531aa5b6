package memory

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ensureID(&n.ID)
	r.s.notifications[n.ID] = copyOf(n)
	return nil
}

func (r *NotificationRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOf(n), nil
}

func (r *NotificationRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Notification{}
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, copyOf(n))
		}
	}
	newestFirst(out, func(n *models.Notification) (time.Time, primitive.ObjectID) { return n.CreatedAt, n.ID })
	if len(out) > 100 {
		out = out[:100]
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Read = true
	return nil
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, note := range r.s.notifications {
		if note.UserID == userID && !note.Read {
			note.Read = true
			n++
		}
	}
	return n, nil
}
