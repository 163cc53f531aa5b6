package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lokmen200/soukstyle/pkg/config"
	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection         = "users"
	shopsCollection         = "shops"
	productsCollection      = "products"
	ordersCollection        = "orders"
	reviewsCollection       = "reviews"
	couponsCollection       = "coupons"
	cartsCollection         = "carts"
	notificationsCollection = "notifications"
	categoriesCollection    = "categories"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes every collection relies on.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"phone": bson.M{"$gt": ""}}),
			},
		},
		shopsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "wilaya", Value: 1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "shop_id", Value: 1}}},
			{Keys: bson.D{{Key: "order_count", Value: -1}, {Key: "views", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		reviewsCollection: {
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "order_id", Value: 1},
					{Key: "target.kind", Value: 1},
					{Key: "target.id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		couponsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		cartsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		m.config.AuditCollection: {
			{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := m.database.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (m *MongoRepository) Users() *UserRepository {
	return &UserRepository{coll: m.database.Collection(usersCollection)}
}

func (m *MongoRepository) Shops() *ShopRepository {
	return &ShopRepository{coll: m.database.Collection(shopsCollection)}
}

func (m *MongoRepository) Products() *ProductRepository {
	return &ProductRepository{coll: m.database.Collection(productsCollection)}
}

func (m *MongoRepository) Orders() *OrderRepository {
	return &OrderRepository{
		coll:  m.database.Collection(ordersCollection),
		shops: m.database.Collection(shopsCollection),
	}
}

func (m *MongoRepository) Reviews() *ReviewRepository {
	return &ReviewRepository{coll: m.database.Collection(reviewsCollection)}
}

func (m *MongoRepository) Coupons() *CouponRepository {
	return &CouponRepository{coll: m.database.Collection(couponsCollection)}
}

func (m *MongoRepository) Carts() *CartRepository {
	return &CartRepository{coll: m.database.Collection(cartsCollection)}
}

func (m *MongoRepository) Notifications() *NotificationRepository {
	return &NotificationRepository{coll: m.database.Collection(notificationsCollection)}
}

func (m *MongoRepository) Categories() *CategoryRepository {
	return &CategoryRepository{coll: m.database.Collection(categoriesCollection)}
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	collection := m.database.Collection(m.config.AuditCollection)
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error) {
	collection := m.database.Collection(m.config.AuditCollection)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []*models.AuditLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s: %w", coll.Name(), err)
	}
	return &doc, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []*T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func requireMatch(res *mongo.UpdateResult, err error) error {
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// exists tells "filter did not match" apart from "document is missing" after
// a guarded update matched nothing.
func exists(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
