package repository

import (
	"context"
	"fmt"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CartRepository struct {
	coll *mongo.Collection
}

func (r *CartRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	return findOne[models.Cart](ctx, r.coll, bson.M{"user_id": userID})
}

// Save upserts the buyer's single cart document.
func (r *CartRepository) Save(ctx context.Context, cart *models.Cart) error {
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	update := bson.M{
		"$set":         bson.M{"items": cart.Items, "updated_at": cart.UpdatedAt},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"user_id": cart.UserID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"items": bson.A{}}, "$currentDate": bson.M{"updated_at": true}})
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
