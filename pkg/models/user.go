package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type Address struct {
	Wilaya string `bson:"wilaya,omitempty" json:"wilaya,omitempty"`
	City   string `bson:"city,omitempty" json:"city,omitempty"`
	Street string `bson:"street,omitempty" json:"street,omitempty"`
}

// User is a buyer, seller or admin account. Sellers are plain users that own
// at least one shop; the role field only distinguishes admins for moderation.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Address      Address            `bson:"address" json:"address"`
	RatingSum    int                `bson:"rating_sum" json:"-"`
	RatingCount  int                `bson:"rating_count" json:"rating_count"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DeliveryRating is the mean rating sellers gave this user as a buyer.
func (u *User) DeliveryRating() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return float64(u.RatingSum) / float64(u.RatingCount)
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		DeliveryRating float64 `json:"delivery_rating"`
	}{plain: plain(u), DeliveryRating: u.DeliveryRating()})
}
