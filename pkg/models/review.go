package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TargetKind string

const (
	TargetProduct TargetKind = "Product"
	TargetShop    TargetKind = "Shop"
	TargetUser    TargetKind = "User"
)

func (k TargetKind) Valid() bool {
	return k == TargetProduct || k == TargetShop || k == TargetUser
}

// Target identifies what a review is about. The caller resolves the kind
// explicitly; nothing dispatches on it at load time.
type Target struct {
	Kind TargetKind         `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Target    Target             `bson:"target" json:"target"`
	OrderID   primitive.ObjectID `bson:"order_id" json:"order_id"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (r *Review) AsRating() Rating {
	return Rating{
		UserID:    r.UserID,
		OrderID:   r.OrderID,
		Rating:    r.Rating,
		Review:    r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
