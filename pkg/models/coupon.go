package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is a percentage discount scoped to one shop. It is applied while an
// order is created and never stored on the order.
type Coupon struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code      string             `bson:"code" json:"code"`
	Discount  float64            `bson:"discount" json:"discount"`
	ExpiresAt *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	ShopID    primitive.ObjectID `bson:"shop_id" json:"shop_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (c *Coupon) Active(now time.Time) bool {
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

func ValidDiscount(d float64) bool {
	return d > 0 && d <= 100
}

// NormalizeCouponCode makes codes case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
