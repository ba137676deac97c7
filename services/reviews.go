package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type ReviewService struct {
	Products store.ProductStore
	now      func() time.Time
}

func NewReviewService(products store.ProductStore) *ReviewService {
	return &ReviewService{Products: products, now: time.Now}
}

// AddReview appends a review written by userID. Resubmitting adds another
// review.
func (s *ReviewService) AddReview(ctx context.Context, productID, userID string, rating int, text string) (*models.Review, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	oid, err := bson.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrInvalidProductID
	}

	review := models.Review{
		Rating: rating,
		Review: strings.TrimSpace(text),
		UserID: userID,
		Date:   s.now().UTC(),
	}
	if err := validateStruct(review); err != nil {
		return nil, err
	}

	if err := s.Products.AppendReview(ctx, oid, review); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &review, nil
}

type ReviewSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	// Distribution[i] counts reviews with rating i+1.
	Distribution [5]int `json:"distribution"`
}

func SummarizeReviews(reviews []models.Review) ReviewSummary {
	var sum ReviewSummary
	total := 0
	for _, r := range reviews {
		if r.Rating < 1 || r.Rating > 5 {
			continue
		}
		sum.Count++
		sum.Distribution[r.Rating-1]++
		total += r.Rating
	}
	if sum.Count > 0 {
		sum.Average = math.Round(float64(total)/float64(sum.Count)*10) / 10
	}
	return sum
}
