package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, r.coll, user)
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"_id": id})
}

// GetByIdentifier looks a user up by email or phone.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(identifier)},
		bson.M{"phone": identifier},
	}}
	return findOne[models.User](ctx, r.coll, filter)
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	update := bson.M{"$set": bson.M{
		"name":          user.Name,
		"email":         user.Email,
		"phone":         user.Phone,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
		"address":       user.Address,
		"updated_at":    user.UpdatedAt,
	}}
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, update))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	return findAll[models.User](ctx, r.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id)
}

// AddDeliveryRating folds one seller rating into the buyer's running totals.
func (r *UserRepository) AddDeliveryRating(ctx context.Context, id primitive.ObjectID, rating int) error {
	update := bson.M{"$inc": bson.M{"rating_sum": rating, "rating_count": 1}}
	if err := requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)); err != nil {
		return fmt.Errorf("failed to rate user: %w", err)
	}
	return nil
}
