package service

import (
	"context"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	topShopsLimit  = 5
	auditLogsLimit = 100
	auditService   = "admin"
	actionApprove  = "shop.approve"
	actionDelShop  = "shop.delete"
	actionDelUser  = "user.delete"
	actionSetRole  = "user.role"
)

type AdminService struct {
	deps Deps
	log  *zap.Logger
}

type PlatformAnalytics struct {
	TotalSales float64            `json:"total_sales"`
	OrderCount int64              `json:"order_count"`
	TopShops   []models.ShopSales `json:"top_shops"`
}

// ListShops returns shops in every moderation state, optionally narrowed to
// one status.
func (s *AdminService) ListShops(ctx context.Context, caller *models.User, status models.ShopStatus) ([]*models.Shop, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	shops, err := s.deps.Repos.Shops.List(ctx, models.ShopFilter{Status: status})
	if err != nil {
		return nil, Internal("failed to list shops", err)
	}
	return shops, nil
}

func (s *AdminService) ApproveShop(ctx context.Context, caller *models.User, id primitive.ObjectID) (*models.Shop, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.deps.Repos.Shops.SetStatus(ctx, id, models.ShopApproved); err != nil {
		return nil, persist(err, "shop")
	}
	shop, err := s.deps.Repos.Shops.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "shop")
	}

	s.audit(ctx, caller, actionApprove, id, bson.M{"name": shop.Name})
	s.deps.Notifier.Notify(shop.OwnerID, "Your shop "+shop.Name+" was approved")
	return shop, nil
}

// DeleteShop removes the shop and every product it lists.
func (s *AdminService) DeleteShop(ctx context.Context, caller *models.User, id primitive.ObjectID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	shop, err := s.deps.Repos.Shops.GetByID(ctx, id)
	if err != nil {
		return lookup(err, "shop")
	}
	if err := s.deps.Repos.Shops.Delete(ctx, id); err != nil {
		return persist(err, "shop")
	}
	removed, err := s.deps.Repos.Products.DeleteByShops(ctx, []primitive.ObjectID{id})
	if err != nil {
		return Internal("failed to delete shop products", err)
	}
	invalidate(ctx, s.deps, trendingCacheKey)

	s.audit(ctx, caller, actionDelShop, id, bson.M{"name": shop.Name, "products_deleted": removed})
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, caller *models.User) ([]*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.deps.Repos.Users.List(ctx)
	if err != nil {
		return nil, Internal("failed to list users", err)
	}
	return users, nil
}

// DeleteUser removes the account, the shops it owns and their products.
// Orders stay for the other party's history.
func (s *AdminService) DeleteUser(ctx context.Context, caller *models.User, id primitive.ObjectID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if id == caller.ID {
		return Invalid("admins cannot delete their own account")
	}
	if _, err := s.deps.Repos.Users.GetByID(ctx, id); err != nil {
		return lookup(err, "user")
	}

	shops, err := s.deps.Repos.Shops.ListByOwner(ctx, id)
	if err != nil {
		return Internal("failed to list user shops", err)
	}
	ids := shopIDs(shops)
	products, err := s.deps.Repos.Products.DeleteByShops(ctx, ids)
	if err != nil {
		return Internal("failed to delete user products", err)
	}
	if _, err := s.deps.Repos.Shops.DeleteByOwner(ctx, id); err != nil {
		return Internal("failed to delete user shops", err)
	}
	if err := s.deps.Repos.Users.Delete(ctx, id); err != nil {
		return persist(err, "user")
	}
	if len(ids) > 0 {
		invalidate(ctx, s.deps, trendingCacheKey)
	}

	s.audit(ctx, caller, actionDelUser, id, bson.M{"shops_deleted": len(ids), "products_deleted": products})
	return nil
}

// SetRole promotes or demotes a user explicitly.
func (s *AdminService) SetRole(ctx context.Context, caller *models.User, id primitive.ObjectID, role models.Role) (*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, Invalid("unknown role %q", role)
	}
	if id == caller.ID && role != models.RoleAdmin {
		return nil, Invalid("admins cannot demote themselves")
	}

	user, err := s.deps.Repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "user")
	}
	previous := user.Role
	user.Role = role
	user.UpdatedAt = s.deps.Now()
	if err := s.deps.Repos.Users.Update(ctx, user); err != nil {
		return nil, persist(err, "user")
	}

	s.audit(ctx, caller, actionSetRole, id, bson.M{"from": previous, "to": role})
	return user, nil
}

func (s *AdminService) Analytics(ctx context.Context, caller *models.User) (*PlatformAnalytics, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	sales, err := s.deps.Repos.Orders.PlatformSales(ctx)
	if err != nil {
		return nil, Internal("failed to compute platform sales", err)
	}
	top, err := s.deps.Repos.Orders.TopShops(ctx, topShopsLimit)
	if err != nil {
		return nil, Internal("failed to rank shops", err)
	}
	return &PlatformAnalytics{TotalSales: sales.TotalSales, OrderCount: sales.OrderCount, TopShops: top}, nil
}

func (s *AdminService) AuditLogs(ctx context.Context, caller *models.User, entityID string) ([]*models.AuditLog, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	logs, err := s.deps.Repos.Audit.GetAuditLogs(ctx, entityID, auditLogsLimit)
	if err != nil {
		return nil, Internal("failed to load audit logs", err)
	}
	return logs, nil
}

// audit is best effort: a failed write is logged and the action stands.
func (s *AdminService) audit(ctx context.Context, caller *models.User, action string, entity primitive.ObjectID, data bson.M) {
	entry := &models.AuditLog{
		Service:  auditService,
		Action:   action,
		ActorID:  caller.ID.Hex(),
		EntityID: entity.Hex(),
		Data:     data,
	}
	if err := s.deps.Repos.Audit.CreateAuditLog(ctx, entry); err != nil {
		s.log.Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
	s.log.Info("Admin action",
		zap.String("action", action),
		zap.String("actor_id", entry.ActorID),
		zap.String("entity_id", entry.EntityID))
}

func requireAdmin(caller *models.User) error {
	if caller == nil || !caller.IsAdmin() {
		return Forbidden("admin access required")
	}
	return nil
}
