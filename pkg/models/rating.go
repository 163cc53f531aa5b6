package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating is one entry of the embedded ratings list kept on products and shops.
type Rating struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrderID   primitive.ObjectID `bson:"order_id" json:"order_id"`
	Rating    int                `bson:"rating" json:"rating"`
	Review    string             `bson:"review,omitempty" json:"review,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

func ratingStats(ratings []Rating) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(ratings)), len(ratings)
}

func hasRating(ratings []Rating, userID, orderID primitive.ObjectID) bool {
	for _, r := range ratings {
		if r.UserID == userID && r.OrderID == orderID {
			return true
		}
	}
	return false
}
