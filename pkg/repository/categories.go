package repository

import (
	"context"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CategoryRepository struct {
	coll *mongo.Collection
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, r.coll, c)
}

func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	return findAll[models.Category](ctx, r.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}
