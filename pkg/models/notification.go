package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Message   string             `bson:"message" json:"message"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// OrderStatusEvent is broadcast to real-time subscribers on every status change.
type OrderStatusEvent struct {
	OrderID   string      `json:"order_id"`
	ShopID    string      `json:"shop_id"`
	BuyerID   string      `json:"buyer_id"`
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func NewOrderStatusEvent(o *Order) OrderStatusEvent {
	return OrderStatusEvent{
		OrderID:   o.ID.Hex(),
		ShopID:    o.ShopID.Hex(),
		BuyerID:   o.BuyerID.Hex(),
		Status:    o.Status,
		UpdatedAt: o.UpdatedAt,
	}
}
