package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ShopStatus string

const (
	ShopPending  ShopStatus = "pending"
	ShopApproved ShopStatus = "approved"
)

type SocialMedia struct {
	Facebook  string `bson:"facebook,omitempty" json:"facebook,omitempty"`
	Instagram string `bson:"instagram,omitempty" json:"instagram,omitempty"`
	TikTok    string `bson:"tiktok,omitempty" json:"tiktok,omitempty"`
}

// Merge keeps the current value for every empty field of update.
func (s SocialMedia) Merge(update SocialMedia) SocialMedia {
	if update.Facebook != "" {
		s.Facebook = update.Facebook
	}
	if update.Instagram != "" {
		s.Instagram = update.Instagram
	}
	if update.TikTok != "" {
		s.TikTok = update.TikTok
	}
	return s
}

const EmployeeRoleStaff = "staff"

type Employee struct {
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        string             `bson:"role" json:"role"`
	Permissions []string           `bson:"permissions,omitempty" json:"permissions,omitempty"`
	AddedAt     time.Time          `bson:"added_at" json:"added_at"`
}

type Shop struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	OwnerID     primitive.ObjectID   `bson:"owner_id" json:"owner_id"`
	Logo        string               `bson:"logo,omitempty" json:"logo,omitempty"`
	Banner      string               `bson:"banner,omitempty" json:"banner,omitempty"`
	Wilaya      string               `bson:"wilaya,omitempty" json:"wilaya,omitempty"`
	City        string               `bson:"city,omitempty" json:"city,omitempty"`
	SocialMedia SocialMedia          `bson:"social_media" json:"social_media"`
	Status      ShopStatus           `bson:"status" json:"status"`
	Followers   []primitive.ObjectID `bson:"followers" json:"followers"`
	Employees   []Employee           `bson:"employees" json:"employees"`
	Ratings     []Rating             `bson:"ratings" json:"ratings"`
	AvgRating   float64              `bson:"avg_rating" json:"avg_rating"`
	RatingCount int                  `bson:"rating_count" json:"rating_count"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// Orderable reports whether buyers may place orders against the shop.
func (s *Shop) Orderable() bool {
	return s.Status == ShopApproved
}

func (s *Shop) IsOwner(userID primitive.ObjectID) bool {
	return s.OwnerID == userID
}

func (s *Shop) IsEmployee(userID primitive.ObjectID) bool {
	for _, e := range s.Employees {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

// CanManageProducts is true for the owner and every registered employee.
func (s *Shop) CanManageProducts(userID primitive.ObjectID) bool {
	return s.IsOwner(userID) || s.IsEmployee(userID)
}

func (s *Shop) HasFollower(userID primitive.ObjectID) bool {
	for _, f := range s.Followers {
		if f == userID {
			return true
		}
	}
	return false
}

func (s *Shop) HasRating(userID, orderID primitive.ObjectID) bool {
	return hasRating(s.Ratings, userID, orderID)
}

// RecomputeRating refreshes AvgRating and RatingCount from Ratings. Stores
// call it before every write of the document.
func (s *Shop) RecomputeRating() {
	s.AvgRating, s.RatingCount = ratingStats(s.Ratings)
}
