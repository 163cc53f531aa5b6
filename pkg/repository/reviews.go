package repository

import (
	"context"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReviewRepository struct {
	coll *mongo.Collection
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, r.coll, review)
}

func (r *ReviewRepository) Exists(ctx context.Context, userID, orderID primitive.ObjectID, target models.Target) (bool, error) {
	filter := bson.M{
		"user_id":     userID,
		"order_id":    orderID,
		"target.kind": target.Kind,
		"target.id":   target.ID,
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ReviewRepository) ListByTarget(ctx context.Context, target models.Target) ([]*models.Review, error) {
	filter := bson.M{"target.kind": target.Kind, "target.id": target.ID}
	return findAll[models.Review](ctx, r.coll, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *ReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id)
}
