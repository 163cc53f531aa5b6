package repository

import (
	"context"
	"fmt"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderRepository struct {
	coll  *mongo.Collection
	shops *mongo.Collection
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, r.coll, o)
}

func (r *OrderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, r.coll, bson.M{"_id": id})
}

func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]*models.Order, error) {
	filter := bson.M{}
	if !f.BuyerID.IsZero() {
		filter["buyer_id"] = f.BuyerID
	}
	if f.ShopIDs != nil {
		filter["shop_id"] = bson.M{"$in": f.ShopIDs}
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	created := bson.M{}
	if f.From != nil {
		created["$gte"] = *f.From
	}
	if f.To != nil {
		created["$lte"] = *f.To
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return findAll[models.Order](ctx, r.coll, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// TransitionStatus applies patch only while the order is still in status
// from. ErrConflict means another request moved it first.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, patch models.StatusPatch) (*models.Order, error) {
	set := bson.M{"status": patch.Status, "updated_at": patch.UpdatedAt}
	if patch.DeliveryStatus != "" {
		set["delivery_status"] = patch.DeliveryStatus
	}
	if patch.PaymentStatus != "" {
		set["payment_status"] = patch.PaymentStatus
	}
	if patch.PaymentConfirmed {
		set["payment_confirmed"] = true
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var o models.Order
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set}, opts).Decode(&o)
	if err == nil {
		return &o, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to update order status: %w", err)
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

// StatsByBuyer returns how many orders the buyer placed and how many of
// them came back returned.
func (r *OrderRepository) StatsByBuyer(ctx context.Context, buyerID primitive.ObjectID) (int64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"buyer_id": buyerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"returned": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", models.OrderReturned}}, 1, 0},
			}},
		}}},
	}

	var rows []struct {
		Total    int64 `bson:"total"`
		Returned int64 `bson:"returned"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Total, rows[0].Returned, nil
}

func (r *OrderRepository) SalesByShops(ctx context.Context, shopIDs []primitive.ObjectID) (models.SalesSummary, error) {
	if len(shopIDs) == 0 {
		return models.SalesSummary{}, nil
	}
	return r.sales(ctx, bson.M{"shop_id": bson.M{"$in": shopIDs}})
}

func (r *OrderRepository) PlatformSales(ctx context.Context) (models.SalesSummary, error) {
	return r.sales(ctx, bson.M{})
}

// TopShops ranks shops by the sum of their non-cancelled order totals.
func (r *OrderRepository) TopShops(ctx context.Context, limit int64) ([]models.ShopSales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$ne": models.OrderCancelled}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$shop_id",
			"total_sales": bson.M{"$sum": "$total"},
			"order_count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_sales", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         r.shops.Name(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "shop",
		}}},
		{{Key: "$set", Value: bson.M{"name": bson.M{"$ifNull": bson.A{bson.M{"$first": "$shop.name"}, ""}}}}},
		{{Key: "$project", Value: bson.M{"shop": 0}}},
	}

	rows := []models.ShopSales{}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OrderRepository) sales(ctx context.Context, match bson.M) (models.SalesSummary, error) {
	match["status"] = bson.M{"$ne": models.OrderCancelled}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"total_sales": bson.M{"$sum": "$total"},
			"order_count": bson.M{"$sum": 1},
		}}},
	}

	var rows []struct {
		TotalSales float64 `bson:"total_sales"`
		OrderCount int64   `bson:"order_count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return models.SalesSummary{}, err
	}
	if len(rows) == 0 {
		return models.SalesSummary{}, nil
	}
	return models.SalesSummary{
		TotalSales: models.Amount(decimal.NewFromFloat(rows[0].TotalSales)),
		OrderCount: rows[0].OrderCount,
	}, nil
}

func (r *OrderRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode aggregation: %w", err)
	}
	return nil
}
