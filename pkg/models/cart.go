package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Variant   *VariantRef        `bson:"variant,omitempty" json:"variant,omitempty"`
}

type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// SetItem replaces the quantity of the matching product+variant line, appends
// a new line, or removes the line when quantity is not positive.
func (c *Cart) SetItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID && c.Items[i].Variant.Equal(item.Variant) {
			if item.Quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return
			}
			c.Items[i].Quantity = item.Quantity
			return
		}
	}
	if item.Quantity > 0 {
		c.Items = append(c.Items, item)
	}
}

// RemoveProduct drops every line of the product regardless of variant.
func (c *Cart) RemoveProduct(productID primitive.ObjectID) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}
