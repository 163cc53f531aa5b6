package memory

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
)

// CreateAuditLog and GetAuditLogs make the store usable as the audit trail.
func (s *Store) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&log.ID)
	log.CreatedAt = time.Now()
	s.audit = append(s.audit, copyOf(log))
	return nil
}

func (s *Store) GetAuditLogs(_ context.Context, entityID string, limit int64) ([]*models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AuditLog{}
	for i := len(s.audit) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if s.audit[i].EntityID == entityID {
			out = append(out, copyOf(s.audit[i]))
		}
	}
	return out, nil
}
