package service

import (
	"context"
	"errors"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ReviewService struct {
	deps Deps
	log  *zap.Logger
}

type ReviewInput struct {
	Target  models.Target
	OrderID primitive.ObjectID
	Rating  int
	Comment string
}

// Create records a review once the order proves the caller may leave it,
// then folds the rating into the target's aggregate. The review document is
// written first so its unique (user, order, target) key rejects duplicates
// before any aggregate moves, and removed again when the aggregate update
// fails.
func (s *ReviewService) Create(ctx context.Context, caller *models.User, in ReviewInput) (*models.Review, error) {
	if !models.ValidRating(in.Rating) {
		return nil, Invalid("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	if !in.Target.Kind.Valid() {
		return nil, Invalid("unknown review target %q", in.Target.Kind)
	}

	if err := s.checkEligible(ctx, caller, in); err != nil {
		return nil, err
	}

	done, err := s.deps.Repos.Reviews.Exists(ctx, caller.ID, in.OrderID, in.Target)
	if err != nil {
		return nil, Internal("failed to check reviews", err)
	}
	if done {
		return nil, Conflict("you already reviewed this order")
	}

	review := &models.Review{
		UserID:    caller.ID,
		Target:    in.Target,
		OrderID:   in.OrderID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.deps.Now(),
	}
	if err := s.deps.Repos.Reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("you already reviewed this order")
		}
		return nil, Internal("failed to save review", err)
	}

	if err := s.aggregate(ctx, review); err != nil {
		// undo the review, the aggregate never saw it
		if derr := s.deps.Repos.Reviews.Delete(ctx, review.ID); derr != nil {
			s.log.Error("Failed to roll back review",
				zap.String("review_id", review.ID.Hex()),
				zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.Hex()),
		zap.String("target_kind", string(review.Target.Kind)),
		zap.String("target_id", review.Target.ID.Hex()),
		zap.Int("rating", review.Rating))
	return review, nil
}

func (s *ReviewService) List(ctx context.Context, target models.Target) ([]*models.Review, error) {
	if !target.Kind.Valid() {
		return nil, Invalid("unknown review target %q", target.Kind)
	}
	reviews, err := s.deps.Repos.Reviews.ListByTarget(ctx, target)
	if err != nil {
		return nil, Internal("failed to list reviews", err)
	}
	return reviews, nil
}

// checkEligible resolves the target and the order that proves eligibility.
// Products and shops need a delivered order of the caller; users need an
// order they placed on a shop the caller owns.
func (s *ReviewService) checkEligible(ctx context.Context, caller *models.User, in ReviewInput) error {
	switch in.Target.Kind {
	case models.TargetProduct:
		if _, err := s.deps.Repos.Products.GetByID(ctx, in.Target.ID); err != nil {
			return lookup(err, "product")
		}
	case models.TargetShop:
		if _, err := s.deps.Repos.Shops.GetByID(ctx, in.Target.ID); err != nil {
			return lookup(err, "shop")
		}
	case models.TargetUser:
		if _, err := s.deps.Repos.Users.GetByID(ctx, in.Target.ID); err != nil {
			return lookup(err, "user")
		}
	}

	order, err := s.deps.Repos.Orders.GetByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Forbidden("a matching order is required to leave a review")
		}
		return Internal("failed to load order", err)
	}

	switch in.Target.Kind {
	case models.TargetProduct:
		if order.BuyerID != caller.ID || order.Status != models.OrderDelivered || !order.Contains(in.Target.ID) {
			return Forbidden("you can only review products from your delivered orders")
		}
	case models.TargetShop:
		if order.BuyerID != caller.ID || order.Status != models.OrderDelivered || order.ShopID != in.Target.ID {
			return Forbidden("you can only review shops you received a delivered order from")
		}
	case models.TargetUser:
		if order.BuyerID != in.Target.ID {
			return Forbidden("this order was not placed by that user")
		}
		shop, err := s.deps.Repos.Shops.GetByID(ctx, order.ShopID)
		if err != nil {
			return lookup(err, "shop")
		}
		if !shop.IsOwner(caller.ID) {
			return Forbidden("you can only rate buyers of your own shop")
		}
	}
	return nil
}

func (s *ReviewService) aggregate(ctx context.Context, review *models.Review) error {
	var (
		added = true
		err   error
	)
	switch review.Target.Kind {
	case models.TargetProduct:
		added, err = s.deps.Repos.Products.AddRating(ctx, review.Target.ID, review.AsRating())
	case models.TargetShop:
		added, err = s.deps.Repos.Shops.AddRating(ctx, review.Target.ID, review.AsRating())
	case models.TargetUser:
		err = s.deps.Repos.Users.AddDeliveryRating(ctx, review.Target.ID, review.Rating)
	}
	if err != nil {
		return persist(err, strings.ToLower(string(review.Target.Kind)))
	}
	if !added {
		s.log.Warn("Rating already present on target",
			zap.String("target_id", review.Target.ID.Hex()),
			zap.String("order_id", review.OrderID.Hex()))
	}
	return nil
}
