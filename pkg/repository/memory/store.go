// Package memory keeps every collection in process. It backs the
// storage.driver=memory mode and the service tests.
package memory

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]*models.User
	shops         map[primitive.ObjectID]*models.Shop
	products      map[primitive.ObjectID]*models.Product
	orders        map[primitive.ObjectID]*models.Order
	reviews       map[primitive.ObjectID]*models.Review
	coupons       map[primitive.ObjectID]*models.Coupon
	carts         map[primitive.ObjectID]*models.Cart
	notifications map[primitive.ObjectID]*models.Notification
	categories    map[primitive.ObjectID]*models.Category
	audit         []*models.AuditLog
}

func NewStore() *Store {
	return &Store{
		users:         make(map[primitive.ObjectID]*models.User),
		shops:         make(map[primitive.ObjectID]*models.Shop),
		products:      make(map[primitive.ObjectID]*models.Product),
		orders:        make(map[primitive.ObjectID]*models.Order),
		reviews:       make(map[primitive.ObjectID]*models.Review),
		coupons:       make(map[primitive.ObjectID]*models.Coupon),
		carts:         make(map[primitive.ObjectID]*models.Cart),
		notifications: make(map[primitive.ObjectID]*models.Notification),
		categories:    make(map[primitive.ObjectID]*models.Category),
	}
}

func (s *Store) Users() *UserRepository                 { return &UserRepository{s} }
func (s *Store) Shops() *ShopRepository                 { return &ShopRepository{s} }
func (s *Store) Products() *ProductRepository           { return &ProductRepository{s} }
func (s *Store) Orders() *OrderRepository               { return &OrderRepository{s} }
func (s *Store) Reviews() *ReviewRepository             { return &ReviewRepository{s} }
func (s *Store) Coupons() *CouponRepository             { return &CouponRepository{s} }
func (s *Store) Carts() *CartRepository                 { return &CartRepository{s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s} }
func (s *Store) Categories() *CategoryRepository        { return &CategoryRepository{s} }

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func copyShop(in *models.Shop) *models.Shop {
	out := *in
	out.Followers = append([]primitive.ObjectID{}, in.Followers...)
	out.Employees = make([]models.Employee, len(in.Employees))
	for i, e := range in.Employees {
		e.Permissions = append([]string(nil), e.Permissions...)
		out.Employees[i] = e
	}
	out.Ratings = append([]models.Rating{}, in.Ratings...)
	return &out
}

func copyProduct(in *models.Product) *models.Product {
	out := *in
	out.Variants = append([]models.Variant{}, in.Variants...)
	out.Ratings = append([]models.Rating{}, in.Ratings...)
	return &out
}

func copyOrder(in *models.Order) *models.Order {
	out := *in
	out.Lines = make([]models.OrderLine, len(in.Lines))
	for i, l := range in.Lines {
		if l.Variant != nil {
			v := *l.Variant
			l.Variant = &v
		}
		out.Lines[i] = l
	}
	return &out
}

func copyCart(in *models.Cart) *models.Cart {
	out := *in
	out.Items = make([]models.CartItem, len(in.Items))
	for i, it := range in.Items {
		if it.Variant != nil {
			v := *it.Variant
			it.Variant = &v
		}
		out.Items[i] = it
	}
	return &out
}

func copyOf[T any](in *T) *T {
	out := *in
	return &out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func inIDs(id primitive.ObjectID, ids []primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// newestFirst sorts by creation time, falling back to the id so documents
// created within the same instant keep insertion order.
func newestFirst[T any](items []*T, key func(*T) (time.Time, primitive.ObjectID)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return bytes.Compare(idi[:], idj[:]) > 0
	})
}
