package repository

import (
	"context"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CouponRepository struct {
	coll *mongo.Collection
}

func (r *CouponRepository) Create(ctx context.Context, c *models.Coupon) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, r.coll, c)
}

func (r *CouponRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	return findOne[models.Coupon](ctx, r.coll, bson.M{"_id": id})
}

// FindByCode only matches coupons scoped to shopID.
func (r *CouponRepository) FindByCode(ctx context.Context, code string, shopID primitive.ObjectID) (*models.Coupon, error) {
	return findOne[models.Coupon](ctx, r.coll, bson.M{"code": code, "shop_id": shopID})
}

func (r *CouponRepository) ListByShops(ctx context.Context, shopIDs []primitive.ObjectID) ([]*models.Coupon, error) {
	if len(shopIDs) == 0 {
		return []*models.Coupon{}, nil
	}
	filter := bson.M{"shop_id": bson.M{"$in": shopIDs}}
	return findAll[models.Coupon](ctx, r.coll, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *CouponRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id)
}
