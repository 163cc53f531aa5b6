package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lokmen200/soukstyle/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ShopRepository struct {
	coll *mongo.Collection
}

func (r *ShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	if shop.ID.IsZero() {
		shop.ID = primitive.NewObjectID()
	}
	// array operators fail on null fields
	if shop.Followers == nil {
		shop.Followers = []primitive.ObjectID{}
	}
	if shop.Employees == nil {
		shop.Employees = []models.Employee{}
	}
	if shop.Ratings == nil {
		shop.Ratings = []models.Rating{}
	}
	shop.RecomputeRating()
	return insertOne(ctx, r.coll, shop)
}

func (r *ShopRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	return findOne[models.Shop](ctx, r.coll, bson.M{"_id": id})
}

func (r *ShopRepository) List(ctx context.Context, f models.ShopFilter) ([]*models.Shop, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.OwnerID.IsZero() {
		filter["owner_id"] = f.OwnerID
	}
	if f.Wilaya != "" {
		filter["wilaya"] = caseInsensitiveExact(f.Wilaya)
	}
	if f.City != "" {
		filter["city"] = caseInsensitiveExact(f.City)
	}
	if f.Search != "" {
		filter["name"] = containsFold(f.Search)
	}
	return findAll[models.Shop](ctx, r.coll, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *ShopRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Shop, error) {
	return r.List(ctx, models.ShopFilter{OwnerID: ownerID})
}

// Update writes the profile fields only; membership lists and ratings have
// their own guarded operations.
func (r *ShopRepository) Update(ctx context.Context, shop *models.Shop) error {
	update := bson.M{"$set": bson.M{
		"name":         shop.Name,
		"logo":         shop.Logo,
		"banner":       shop.Banner,
		"wilaya":       shop.Wilaya,
		"city":         shop.City,
		"social_media": shop.SocialMedia,
		"updated_at":   shop.UpdatedAt,
	}}
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": shop.ID}, update))
}

func (r *ShopRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ShopStatus) error {
	update := bson.M{"$set": bson.M{"status": status}, "$currentDate": bson.M{"updated_at": true}}
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": id}, update))
}

// AddFollower returns false when the user already follows the shop.
func (r *ShopRepository) AddFollower(ctx context.Context, shopID, userID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": shopID}, bson.M{"$addToSet": bson.M{"followers": userID}})
	if err := requireMatch(res, err); err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *ShopRepository) RemoveFollower(ctx context.Context, shopID, userID primitive.ObjectID) error {
	return requireMatch(r.coll.UpdateOne(ctx, bson.M{"_id": shopID}, bson.M{"$pull": bson.M{"followers": userID}}))
}

// AddEmployee returns false when the user is already registered on the shop.
func (r *ShopRepository) AddEmployee(ctx context.Context, shopID primitive.ObjectID, emp models.Employee) (bool, error) {
	filter := bson.M{"_id": shopID, "employees.user_id": bson.M{"$ne": emp.UserID}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"employees": emp}})
	if err != nil {
		return false, fmt.Errorf("failed to add employee: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, r.missingOr(ctx, shopID)
	}
	return true, nil
}

func (r *ShopRepository) RemoveEmployee(ctx context.Context, shopID, userID primitive.ObjectID) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": shopID}, bson.M{"$pull": bson.M{"employees": bson.M{"user_id": userID}}})
	if err := requireMatch(res, err); err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddRating appends the rating and recomputes the aggregate in the same
// write. It returns false when the (user, order) pair already rated the shop.
func (r *ShopRepository) AddRating(ctx context.Context, shopID primitive.ObjectID, rating models.Rating) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, ratingGuard(shopID, rating), appendRatingPipeline(rating))
	if err != nil {
		return false, fmt.Errorf("failed to rate shop: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, r.missingOr(ctx, shopID)
	}
	return true, nil
}

func (r *ShopRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *ShopRepository) DeleteByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete shops: %w", err)
	}
	return res.DeletedCount, nil
}

// missingOr returns ErrNotFound when the shop is gone and nil when it exists
// but the guard filtered it out.
func (r *ShopRepository) missingOr(ctx context.Context, id primitive.ObjectID) error {
	ok, err := exists(ctx, r.coll, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func ratingGuard(id primitive.ObjectID, rating models.Rating) bson.M {
	return bson.M{
		"_id": id,
		"ratings": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user_id":  rating.UserID,
			"order_id": rating.OrderID,
		}}},
	}
}

func appendRatingPipeline(rating models.Rating) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ratings": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$ratings", bson.A{}}},
				bson.A{bson.M{"$literal": rating}},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"rating_count": bson.M{"$size": "$ratings"},
			"avg_rating":   bson.M{"$avg": "$ratings.rating"},
			"updated_at":   "$$NOW",
		}}},
	}
}

func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func caseInsensitiveExact(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
