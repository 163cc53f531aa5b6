package service

import (
	"context"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ShopService struct {
	deps Deps
	log  *zap.Logger
}

type CreateShopInput struct {
	Name        string
	Wilaya      string
	City        string
	Logo        string
	Banner      string
	SocialMedia models.SocialMedia
}

type EmployeeInput struct {
	UserID      primitive.ObjectID
	Role        string
	Permissions []string
}

type ShopAnalytics struct {
	Shops        int     `json:"shops"`
	TotalSales   float64 `json:"total_sales"`
	OrderCount   int64   `json:"order_count"`
	ProductCount int64   `json:"product_count"`
}

// Create registers a shop for the caller. New shops wait in pending until an
// admin approves them.
func (s *ShopService) Create(ctx context.Context, caller *models.User, in CreateShopInput) (*models.Shop, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Invalid("shop name is required")
	}

	now := s.deps.Now()
	shop := &models.Shop{
		Name:        name,
		OwnerID:     caller.ID,
		Logo:        in.Logo,
		Banner:      in.Banner,
		Wilaya:      strings.TrimSpace(in.Wilaya),
		City:        strings.TrimSpace(in.City),
		SocialMedia: in.SocialMedia,
		Status:      models.ShopPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Repos.Shops.Create(ctx, shop); err != nil {
		return nil, persist(err, "shop")
	}

	s.log.Info("Shop created", zap.String("shop_id", shop.ID.Hex()), zap.String("owner_id", caller.ID.Hex()))
	return shop, nil
}

// List returns approved shops only.
func (s *ShopService) List(ctx context.Context, filter models.ShopFilter) ([]*models.Shop, error) {
	filter.Status = models.ShopApproved
	filter.OwnerID = primitive.NilObjectID
	shops, err := s.deps.Repos.Shops.List(ctx, filter)
	if err != nil {
		return nil, Internal("failed to list shops", err)
	}
	return shops, nil
}

func (s *ShopService) Get(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	shop, err := s.deps.Repos.Shops.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "shop")
	}
	return shop, nil
}

func (s *ShopService) Mine(ctx context.Context, caller *models.User) ([]*models.Shop, error) {
	shops, err := s.deps.Repos.Shops.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, Internal("failed to list shops", err)
	}
	return shops, nil
}

// UpdateSocialMedia keeps the current link for every empty field.
func (s *ShopService) UpdateSocialMedia(ctx context.Context, caller *models.User, shopID primitive.ObjectID, links models.SocialMedia) (*models.Shop, error) {
	shop, err := s.owned(ctx, caller, shopID)
	if err != nil {
		return nil, err
	}
	shop.SocialMedia = shop.SocialMedia.Merge(links)
	shop.UpdatedAt = s.deps.Now()
	if err := s.deps.Repos.Shops.Update(ctx, shop); err != nil {
		return nil, persist(err, "shop")
	}
	return shop, nil
}

// UpdateImages stores already uploaded logo and banner locations. Empty
// values keep the current image.
func (s *ShopService) UpdateImages(ctx context.Context, caller *models.User, shopID primitive.ObjectID, logo, banner string) (*models.Shop, error) {
	shop, err := s.owned(ctx, caller, shopID)
	if err != nil {
		return nil, err
	}
	if logo == "" && banner == "" {
		return nil, Invalid("no image uploaded")
	}
	if logo != "" {
		shop.Logo = logo
	}
	if banner != "" {
		shop.Banner = banner
	}
	shop.UpdatedAt = s.deps.Now()
	if err := s.deps.Repos.Shops.Update(ctx, shop); err != nil {
		return nil, persist(err, "shop")
	}
	return shop, nil
}

// Follow rejects a second follow with Conflict.
func (s *ShopService) Follow(ctx context.Context, caller *models.User, shopID primitive.ObjectID) error {
	added, err := s.deps.Repos.Shops.AddFollower(ctx, shopID, caller.ID)
	if err != nil {
		return persist(err, "shop")
	}
	if !added {
		return Conflict("already following this shop")
	}
	return nil
}

// Unfollow succeeds whether or not the caller was a follower.
func (s *ShopService) Unfollow(ctx context.Context, caller *models.User, shopID primitive.ObjectID) error {
	if err := s.deps.Repos.Shops.RemoveFollower(ctx, shopID, caller.ID); err != nil {
		return persist(err, "shop")
	}
	return nil
}

func (s *ShopService) AddEmployee(ctx context.Context, caller *models.User, shopID primitive.ObjectID, in EmployeeInput) (*models.Shop, error) {
	shop, err := s.owned(ctx, caller, shopID)
	if err != nil {
		return nil, err
	}
	if in.UserID == shop.OwnerID {
		return nil, Invalid("the owner cannot be added as an employee")
	}
	if _, err := s.deps.Repos.Users.GetByID(ctx, in.UserID); err != nil {
		return nil, lookup(err, "user")
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.EmployeeRoleStaff
	}
	emp := models.Employee{UserID: in.UserID, Role: role, Permissions: in.Permissions, AddedAt: s.deps.Now()}

	added, err := s.deps.Repos.Shops.AddEmployee(ctx, shopID, emp)
	if err != nil {
		return nil, persist(err, "shop")
	}
	if !added {
		return nil, Conflict("user is already an employee of this shop")
	}

	s.deps.Notifier.Notify(in.UserID, "You were added as "+role+" of "+shop.Name)
	return s.Get(ctx, shopID)
}

func (s *ShopService) RemoveEmployee(ctx context.Context, caller *models.User, shopID, userID primitive.ObjectID) (*models.Shop, error) {
	if _, err := s.owned(ctx, caller, shopID); err != nil {
		return nil, err
	}
	removed, err := s.deps.Repos.Shops.RemoveEmployee(ctx, shopID, userID)
	if err != nil {
		return nil, persist(err, "shop")
	}
	if !removed {
		return nil, NotFound("employee")
	}
	return s.Get(ctx, shopID)
}

// Analytics sums sales, orders and products over every shop the caller owns.
func (s *ShopService) Analytics(ctx context.Context, caller *models.User) (*ShopAnalytics, error) {
	shops, err := s.Mine(ctx, caller)
	if err != nil {
		return nil, err
	}
	ids := shopIDs(shops)

	sales, err := s.deps.Repos.Orders.SalesByShops(ctx, ids)
	if err != nil {
		return nil, Internal("failed to compute sales", err)
	}
	products, err := s.deps.Repos.Products.CountByShops(ctx, ids)
	if err != nil {
		return nil, Internal("failed to count products", err)
	}

	return &ShopAnalytics{
		Shops:        len(shops),
		TotalSales:   sales.TotalSales,
		OrderCount:   sales.OrderCount,
		ProductCount: products,
	}, nil
}

// owned loads the shop and checks the caller owns it.
func (s *ShopService) owned(ctx context.Context, caller *models.User, shopID primitive.ObjectID) (*models.Shop, error) {
	shop, err := s.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !shop.IsOwner(caller.ID) {
		return nil, Forbidden("only the shop owner can do this")
	}
	return shop, nil
}

func shopIDs(shops []*models.Shop) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(shops))
	for _, shop := range shops {
		ids = append(ids, shop.ID)
	}
	return ids
}
