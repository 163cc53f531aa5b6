// Package service holds the marketplace rules: order lifecycle, stock,
// ratings, shop membership and moderation. Handlers call it with an
// authenticated caller and translate *Error kinds into responses.
package service

import (
	"context"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddDeliveryRating(ctx context.Context, id primitive.ObjectID, rating int) error
}

type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Shop, error)
	List(ctx context.Context, filter models.ShopFilter) ([]*models.Shop, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.ShopStatus) error
	AddFollower(ctx context.Context, shopID, userID primitive.ObjectID) (bool, error)
	RemoveFollower(ctx context.Context, shopID, userID primitive.ObjectID) error
	AddEmployee(ctx context.Context, shopID primitive.ObjectID, emp models.Employee) (bool, error)
	RemoveEmployee(ctx context.Context, shopID, userID primitive.ObjectID) (bool, error)
	AddRating(ctx context.Context, shopID primitive.ObjectID, rating models.Rating) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, q models.ProductQuery) ([]*models.Product, int64, error)
	Trending(ctx context.Context, limit int64) ([]*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByShops(ctx context.Context, shopIDs []primitive.ObjectID) (int64, error)
	CountByShops(ctx context.Context, shopIDs []primitive.ObjectID) (int64, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) (*models.Product, error)
	RestoreStock(ctx context.Context, id primitive.ObjectID, quantity int) error
	AddRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) (bool, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, patch models.StatusPatch) (*models.Order, error)
	StatsByBuyer(ctx context.Context, buyerID primitive.ObjectID) (total, returned int64, err error)
	SalesByShops(ctx context.Context, shopIDs []primitive.ObjectID) (models.SalesSummary, error)
	PlatformSales(ctx context.Context) (models.SalesSummary, error)
	TopShops(ctx context.Context, limit int64) ([]models.ShopSales, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Exists(ctx context.Context, userID, orderID primitive.ObjectID, target models.Target) (bool, error)
	ListByTarget(ctx context.Context, target models.Target) ([]*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CouponRepository interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string, shopID primitive.ObjectID) (*models.Coupon, error)
	ListByShops(ctx context.Context, shopIDs []primitive.ObjectID) ([]*models.Coupon, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CartRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	List(ctx context.Context) ([]*models.Category, error)
}

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error)
}

type Repositories struct {
	Users         UserRepository
	Shops         ShopRepository
	Products      ProductRepository
	Orders        OrderRepository
	Reviews       ReviewRepository
	Coupons       CouponRepository
	Carts         CartRepository
	Notifications NotificationRepository
	Categories    CategoryRepository
	Audit         AuditRepository
}

// Notifier carries the side effects of domain operations. Calls return
// immediately; delivery failures are logged by the implementation and never
// reach the caller.
type Notifier interface {
	Notify(userID primitive.ObjectID, message string)
	Email(to, subject, body string)
	OrderStatusChanged(event models.OrderStatusEvent)
}

// Cache is an optional read-through cache for hot, rarely changing lists.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

type Options struct {
	LowStockThreshold int
	CancelWindow      time.Duration
	AdminEmails       []string
	CacheTTL          time.Duration
}

type Deps struct {
	Repos    Repositories
	Notifier Notifier
	Cache    Cache
	Tokens   TokenIssuer
	Logger   *zap.Logger
	Options  Options
	// Now defaults to time.Now.
	Now func() time.Time
}

// Services bundles every domain service over one set of dependencies.
type Services struct {
	Users         *UserService
	Shops         *ShopService
	Products      *ProductService
	Orders        *OrderService
	Reviews       *ReviewService
	Coupons       *CouponService
	Carts         *CartService
	Notifications *NotificationService
	Categories    *CategoryService
	Admin         *AdminService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Cache == nil {
		d.Cache = NopCache{}
	}
	if d.Options.CancelWindow <= 0 {
		d.Options.CancelWindow = 24 * time.Hour
	}
	if d.Options.LowStockThreshold <= 0 {
		d.Options.LowStockThreshold = 5
	}
	if d.Options.CacheTTL <= 0 {
		d.Options.CacheTTL = 5 * time.Minute
	}

	return &Services{
		Users:         &UserService{deps: d, log: d.Logger.Named("users")},
		Shops:         &ShopService{deps: d, log: d.Logger.Named("shops")},
		Products:      &ProductService{deps: d, log: d.Logger.Named("products")},
		Orders:        &OrderService{deps: d, log: d.Logger.Named("orders")},
		Reviews:       &ReviewService{deps: d, log: d.Logger.Named("reviews")},
		Coupons:       &CouponService{deps: d},
		Carts:         &CartService{deps: d},
		Notifications: &NotificationService{deps: d},
		Categories:    &CategoryService{deps: d, log: d.Logger.Named("categories")},
		Admin:         &AdminService{deps: d, log: d.Logger.Named("admin")},
	}
}

// NopCache misses on every read.
type NopCache struct{}

func (NopCache) GetJSON(context.Context, string, interface{}) error { return repository.ErrCacheMiss }
func (NopCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (NopCache) Del(context.Context, ...string) error { return nil }

// cached serves key from the cache, loading and storing it on a miss. Cache
// failures only cost a trip to the store.
func cached[T any](ctx context.Context, d Deps, key string, load func() (T, error)) (T, error) {
	var v T
	if err := d.Cache.GetJSON(ctx, key, &v); err == nil {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if err := d.Cache.SetJSON(ctx, key, v, d.Options.CacheTTL); err != nil {
		d.Logger.Warn("Failed to fill cache", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func invalidate(ctx context.Context, d Deps, keys ...string) {
	if err := d.Cache.Del(ctx, keys...); err != nil {
		d.Logger.Warn("Failed to invalidate cache", zap.Strings("keys", keys), zap.Error(err))
	}
}
