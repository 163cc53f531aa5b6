package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*Limit inside int64 for every allowed Limit.
	MaxPage = math.MaxInt64 / MaxPageSize
)

// ProductSortFields maps accepted sort keys to stored field names.
var ProductSortFields = map[string]string{
	"created_at":  "created_at",
	"price":       "price",
	"name":        "name",
	"avg_rating":  "avg_rating",
	"order_count": "order_count",
	"views":       "views",
}

type ProductQuery struct {
	CategoryID primitive.ObjectID
	ShopID     primitive.ObjectID
	ShopIDs    []primitive.ObjectID
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
	SortField  string
	SortDesc   bool
	Page       int64
	Limit      int64
}

// Normalize clamps paging and falls back to newest-first ordering.
func (q *ProductQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if _, ok := ProductSortFields[q.SortField]; !ok {
		q.SortField = "created_at"
		q.SortDesc = true
	}
}

func (q *ProductQuery) Skip() int64 {
	return (q.Page - 1) * q.Limit
}

type ProductPage struct {
	Products []*Product `json:"products"`
	Total    int64      `json:"total"`
	Page     int64      `json:"page"`
	Pages    int64      `json:"pages"`
}

func NewProductPage(products []*Product, total int64, q ProductQuery) *ProductPage {
	pages := int64(0)
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	if products == nil {
		products = []*Product{}
	}
	return &ProductPage{Products: products, Total: total, Page: q.Page, Pages: pages}
}

type ShopFilter struct {
	Status  ShopStatus
	OwnerID primitive.ObjectID
	Wilaya  string
	City    string
	Search  string
}

type OrderFilter struct {
	BuyerID primitive.ObjectID
	ShopIDs []primitive.ObjectID
	Status  OrderStatus
	From    *time.Time
	To      *time.Time
}

type ShopSales struct {
	ShopID     primitive.ObjectID `bson:"_id" json:"shop_id"`
	Name       string             `bson:"name" json:"name"`
	TotalSales float64            `bson:"total_sales" json:"total_sales"`
	OrderCount int64              `bson:"order_count" json:"order_count"`
}

type SalesSummary struct {
	TotalSales float64 `json:"total_sales"`
	OrderCount int64   `json:"order_count"`
}
