package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(_ context.Context, o *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ensureID(&o.ID)
	if _, ok := r.s.orders[o.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *OrderRepository) List(_ context.Context, f models.OrderFilter) ([]*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Order{}
	for _, o := range r.s.orders {
		if !f.BuyerID.IsZero() && o.BuyerID != f.BuyerID {
			continue
		}
		if f.ShopIDs != nil && !inIDs(o.ShopID, f.ShopIDs) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	newestFirst(out, func(o *models.Order) (time.Time, primitive.ObjectID) { return o.CreatedAt, o.ID })
	return out, nil
}

func (r *OrderRepository) TransitionStatus(_ context.Context, id primitive.ObjectID, from models.OrderStatus, patch models.StatusPatch) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != from {
		return nil, repository.ErrConflict
	}
	o.Apply(patch)
	return copyOrder(o), nil
}

func (r *OrderRepository) StatsByBuyer(_ context.Context, buyerID primitive.ObjectID) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var total, returned int64
	for _, o := range r.s.orders {
		if o.BuyerID != buyerID {
			continue
		}
		total++
		if o.Status == models.OrderReturned {
			returned++
		}
	}
	return total, returned, nil
}

func (r *OrderRepository) SalesByShops(_ context.Context, shopIDs []primitive.ObjectID) (models.SalesSummary, error) {
	return r.sales(func(o *models.Order) bool { return inIDs(o.ShopID, shopIDs) }), nil
}

func (r *OrderRepository) PlatformSales(_ context.Context) (models.SalesSummary, error) {
	return r.sales(func(*models.Order) bool { return true }), nil
}

func (r *OrderRepository) TopShops(_ context.Context, limit int64) ([]models.ShopSales, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := map[primitive.ObjectID]decimal.Decimal{}
	counts := map[primitive.ObjectID]int64{}
	for _, o := range r.s.orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		totals[o.ShopID] = totals[o.ShopID].Add(decimal.NewFromFloat(o.Total))
		counts[o.ShopID]++
	}

	out := make([]models.ShopSales, 0, len(totals))
	for shopID, total := range totals {
		row := models.ShopSales{ShopID: shopID, TotalSales: models.Amount(total), OrderCount: counts[shopID]}
		if shop, ok := r.s.shops[shopID]; ok {
			row.Name = shop.Name
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSales != out[j].TotalSales {
			return out[i].TotalSales > out[j].TotalSales
		}
		return out[i].ShopID.Hex() < out[j].ShopID.Hex()
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepository) sales(keep func(*models.Order) bool) models.SalesSummary {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := decimal.Zero
	var count int64
	for _, o := range r.s.orders {
		if o.Status == models.OrderCancelled || !keep(o) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(o.Total))
		count++
	}
	return models.SalesSummary{TotalSales: models.Amount(total), OrderCount: count}
}
