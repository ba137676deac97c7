package services

import (
	"context"
	"errors"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CatalogService struct {
	Products store.ProductStore
}

func NewCatalogService(products store.ProductStore) *CatalogService {
	return &CatalogService{Products: products}
}

type CatalogPage struct {
	Products       []models.Product `json:"products"`
	Categories     []string         `json:"categories"`
	ActiveCategory string           `json:"activeCategory"`
}

// List filters by exact category match. Categories always come from the
// whole catalog, in first-seen order.
func (s *CatalogService) List(ctx context.Context, category string) (*CatalogPage, error) {
	all, err := s.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	page := &CatalogPage{
		Products:       make([]models.Product, 0, len(all)),
		Categories:     DistinctCategories(all),
		ActiveCategory: category,
	}
	for _, p := range all {
		if category == "" || p.Category == category {
			page.Products = append(page.Products, p)
		}
	}
	return page, nil
}

func DistinctCategories(products []models.Product) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

type ProductDetail struct {
	Product models.Product `json:"product"`
	Summary ReviewSummary  `json:"reviewSummary"`
}

func (s *CatalogService) Get(ctx context.Context, productID string) (*ProductDetail, error) {
	oid, err := bson.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrInvalidProductID
	}
	p, err := s.Products.GetProduct(ctx, oid)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	return &ProductDetail{Product: *p, Summary: SummarizeReviews(p.Reviews)}, nil
}
