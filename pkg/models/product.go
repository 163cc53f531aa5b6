package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Variant stock is catalog information only; the top-level Stock is the
// pool orders draw from.
type Variant struct {
	Size  string `bson:"size,omitempty" json:"size,omitempty"`
	Color string `bson:"color,omitempty" json:"color,omitempty"`
	Stock int    `bson:"stock" json:"stock"`
}

type VariantRef struct {
	Size  string `bson:"size,omitempty" json:"size,omitempty"`
	Color string `bson:"color,omitempty" json:"color,omitempty"`
}

func (v *VariantRef) Equal(o *VariantRef) bool {
	if v == nil || o == nil {
		return v.IsZero() && o.IsZero()
	}
	return strings.EqualFold(v.Size, o.Size) && strings.EqualFold(v.Color, o.Color)
}

func (v *VariantRef) IsZero() bool {
	return v == nil || (v.Size == "" && v.Color == "")
}

type Product struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ShopID            primitive.ObjectID `bson:"shop_id" json:"shop_id"`
	CreatedBy         primitive.ObjectID `bson:"created_by" json:"created_by"`
	Name              string             `bson:"name" json:"name"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	Price             float64            `bson:"price" json:"price"`
	Stock             int                `bson:"stock" json:"stock"`
	LowStockThreshold int                `bson:"low_stock_threshold,omitempty" json:"low_stock_threshold,omitempty"`
	CategoryID        primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Image             string             `bson:"image,omitempty" json:"image,omitempty"`
	Variants          []Variant          `bson:"variants" json:"variants"`
	Ratings           []Rating           `bson:"ratings" json:"ratings"`
	AvgRating         float64            `bson:"avg_rating" json:"avg_rating"`
	RatingCount       int                `bson:"rating_count" json:"rating_count"`
	Views             int64              `bson:"views" json:"views"`
	OrderCount        int64              `bson:"order_count" json:"order_count"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

var (
	ErrProductName     = errors.New("product name is required")
	ErrNegativePrice   = errors.New("price must be zero or greater")
	ErrNegativeStock   = errors.New("stock must be zero or greater")
	ErrVariantStock    = errors.New("variant stock must be zero or greater")
	ErrNegativeLowMark = errors.New("low stock threshold must be zero or greater")
)

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrProductName
	}
	if p.Price < 0 {
		return ErrNegativePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	if p.LowStockThreshold < 0 {
		return ErrNegativeLowMark
	}
	for _, v := range p.Variants {
		if v.Stock < 0 {
			return ErrVariantStock
		}
	}
	return nil
}

// HasVariant reports whether ref names one of the product's variants. A zero
// ref always matches.
func (p *Product) HasVariant(ref *VariantRef) bool {
	if ref.IsZero() {
		return true
	}
	for _, v := range p.Variants {
		if ref.Equal(&VariantRef{Size: v.Size, Color: v.Color}) {
			return true
		}
	}
	return false
}

func (p *Product) HasRating(userID, orderID primitive.ObjectID) bool {
	return hasRating(p.Ratings, userID, orderID)
}

// RecomputeRating refreshes AvgRating and RatingCount from Ratings. Stores
// call it before every write of the document.
func (p *Product) RecomputeRating() {
	p.AvgRating, p.RatingCount = ratingStats(p.Ratings)
}

// LowStock reports whether the current stock fell below the product's own
// threshold, or below fallback when the product has none.
func (p *Product) LowStock(fallback int) bool {
	threshold := p.LowStockThreshold
	if threshold == 0 {
		threshold = fallback
	}
	return p.Stock < threshold
}
