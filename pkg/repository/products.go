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

type ProductRepository struct {
	coll *mongo.Collection
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Variants == nil {
		p.Variants = []models.Variant{}
	}
	if p.Ratings == nil {
		p.Ratings = []models.Rating{}
	}
	p.RecomputeRating()
	return insertOne(ctx, r.coll, p)
}

func (r *ProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return findOne[models.Product](ctx, r.coll, bson.M{"_id": id})
}

// IncrementViews is a plain $inc; concurrent views never lose counts.
func (r *ProductRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}}))
}

func (r *ProductRepository) List(ctx context.Context, q models.ProductQuery) ([]*models.Product, int64, error) {
	q.Normalize()

	filter := bson.M{}
	if !q.CategoryID.IsZero() {
		filter["category_id"] = q.CategoryID
	}
	switch {
	case !q.ShopID.IsZero():
		filter["shop_id"] = q.ShopID
	case q.ShopIDs != nil:
		filter["shop_id"] = bson.M{"$in": q.ShopIDs}
	}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsFold(q.Search)},
			bson.M{"description": containsFold(q.Search)},
		}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	dir := 1
	if q.SortDesc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: models.ProductSortFields[q.SortField], Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(q.Skip()).
		SetLimit(q.Limit)

	products, err := findAll[models.Product](ctx, r.coll, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Trending(ctx context.Context, limit int64) ([]*models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "order_count", Value: -1}, {Key: "views", Value: -1}}).
		SetLimit(limit)
	return findAll[models.Product](ctx, r.coll, bson.M{}, opts)
}

// Update writes the catalog fields. Stock is included so owners can restock;
// ratings, counters and the shop reference are left alone.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	update := bson.M{"$set": bson.M{
		"name":                p.Name,
		"description":         p.Description,
		"price":               p.Price,
		"stock":               p.Stock,
		"low_stock_threshold": p.LowStockThreshold,
		"category_id":         p.CategoryID,
		"image":               p.Image,
		"variants":            p.Variants,
		"updated_at":          p.UpdatedAt,
	}}
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update))
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *ProductRepository) DeleteByShops(ctx context.Context, shopIDs []primitive.ObjectID) (int64, error) {
	if len(shopIDs) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"shop_id": bson.M{"$in": shopIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *ProductRepository) CountByShops(ctx context.Context, shopIDs []primitive.ObjectID) (int64, error) {
	if len(shopIDs) == 0 {
		return 0, nil
	}
	return r.coll.CountDocuments(ctx, bson.M{"shop_id": bson.M{"$in": shopIDs}})
}

// DecrementStock takes quantity units only while at least that many remain,
// and adds them to order_count in the same write. ErrConflict means stock was short.
func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) (*models.Product, error) {
	filter := bson.M{"_id": id, "stock": bson.M{"$gte": quantity}}
	update := bson.M{
		"$inc":         bson.M{"stock": -quantity, "order_count": quantity},
		"$currentDate": bson.M{"updated_at": true},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Product
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	ok, err := exists(ctx, r.coll, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}

// RestoreStock gives back quantity units and takes them off order_count.
func (r *ProductRepository) RestoreStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	update := bson.M{
		"$inc":         bson.M{"stock": quantity, "order_count": -quantity},
		"$currentDate": bson.M{"updated_at": true},
	}
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": id}, update))
}

func (r *ProductRepository) AddRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, ratingGuard(id, rating), appendRatingPipeline(rating))
	if err != nil {
		return false, fmt.Errorf("failed to rate product: %w", err)
	}
	if res.MatchedCount == 0 {
		ok, err := exists(ctx, r.coll, id)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}
