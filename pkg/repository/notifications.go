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

type NotificationRepository struct {
	coll *mongo.Collection
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, r.coll, n)
}

func (r *NotificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	return findOne[models.Notification](ctx, r.coll, bson.M{"_id": id})
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	return findAll[models.Notification](ctx, r.coll, bson.M{"user_id": userID}, opts)
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}}))
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, bson.M{"user_id": userID, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}
