package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ProductInput is the raw admin form. Numbers stay strings until parse so
// that every bad field can be reported at once.
type ProductInput struct {
	ID          string                `json:"productId"`
	Name        string                `json:"name" validate:"required"`
	Category    string                `json:"category" validate:"required"`
	Price       string                `json:"price" validate:"required"`
	Stock       string                `json:"stock" validate:"required"`
	Status      string                `json:"status" validate:"required"`
	Description string                `json:"description" validate:"required"`
	Features    string                `json:"features"`
	ImageURL    string                `json:"imageUrl"`
	Image       *multipart.FileHeader `json:"-" validate:"-"`
}

func (in *ProductInput) trim() {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Price = strings.TrimSpace(in.Price)
	in.Stock = strings.TrimSpace(in.Stock)
	in.Status = strings.TrimSpace(in.Status)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

// toProduct validates the admin fields and builds the product document.
func (in ProductInput) toProduct() (*models.Product, error) {
	in.trim()

	var fields []string
	if err := validateStruct(in); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		fields = ve.Fields
	}

	p := &models.Product{
		Name:        in.Name,
		Category:    in.Category,
		Status:      models.ProductStatus(in.Status),
		Description: in.Description,
		Features:    utils.SplitLines(in.Features),
		ImageUrl:    in.ImageURL,
	}

	if in.Price != "" {
		price, err := decimal.NewFromString(in.Price)
		if err != nil || price.IsNegative() {
			fields = appendUnique(fields, "price")
		} else {
			p.Price = price.Round(2).InexactFloat64()
		}
	}
	if in.Stock != "" {
		stock, err := strconv.Atoi(in.Stock)
		if err != nil || stock < 0 {
			fields = appendUnique(fields, "stock")
		} else {
			p.Stock = stock
		}
	}
	if in.Status != "" && !p.Status.Valid() {
		fields = appendUnique(fields, "status")
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return p, nil
}

func parseProductID(raw string) (bson.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return bson.ObjectID{}, &ValidationError{Fields: []string{"productId"}}
	}
	oid, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, ErrInvalidProductID
	}
	return oid, nil
}

type AdminService struct {
	Products  store.ProductStore
	Uploader  utils.ImageUploader
	Validator *utils.FileValidator
}

func NewAdminService(products store.ProductStore, uploader utils.ImageUploader, v *utils.FileValidator) *AdminService {
	return &AdminService{Products: products, Uploader: uploader, Validator: v}
}

func (s *AdminService) AddProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p, err := in.toProduct()
	if err != nil {
		return nil, err
	}
	if err := s.attachImage(ctx, p, in.Image); err != nil {
		return nil, err
	}
	if err := s.Products.CreateProduct(ctx, p); err != nil {
		utils.DeleteImageQuietly(ctx, s.Uploader, uploadedURL(in, p))
		return nil, fmt.Errorf("add product: %w", err)
	}
	return p, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	oid, err := parseProductID(in.ID)
	if err != nil {
		return nil, err
	}
	p, err := in.toProduct()
	if err != nil {
		return nil, err
	}
	p.Id = oid

	existing, err := s.Products.GetProduct(ctx, oid)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachImage(ctx, p, in.Image); err != nil {
		return nil, err
	}
	if err := s.Products.UpdateProduct(ctx, p); err != nil {
		utils.DeleteImageQuietly(ctx, s.Uploader, uploadedURL(in, p))
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	if p.ImageUrl != "" && existing.ImageUrl != "" && p.ImageUrl != existing.ImageUrl {
		utils.DeleteImageQuietly(ctx, s.Uploader, existing.ImageUrl)
	}
	if p.ImageUrl == "" {
		p.ImageUrl = existing.ImageUrl
	}
	p.Reviews = existing.Reviews
	return p, nil
}

// DeleteProduct is a no-op for ids that no longer exist.
func (s *AdminService) DeleteProduct(ctx context.Context, productID string) error {
	oid, err := parseProductID(productID)
	if err != nil {
		return err
	}
	existing, err := s.Products.GetProduct(ctx, oid)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Products.DeleteProduct(ctx, oid); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	utils.DeleteImageQuietly(ctx, s.Uploader, existing.ImageUrl)
	return nil
}

func (s *AdminService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.Products.ListProducts(ctx)
}

func (s *AdminService) attachImage(ctx context.Context, p *models.Product, fh *multipart.FileHeader) error {
	if fh == nil {
		return nil
	}
	if s.Uploader == nil || s.Validator == nil {
		return &ValidationError{Fields: []string{"image"}}
	}
	contentType, err := s.Validator.ValidateFile(fh)
	if err != nil {
		return fmt.Errorf("%w: image: %v", &ValidationError{Fields: []string{"image"}}, err)
	}
	url, err := s.Uploader.Upload(ctx, p.Name, fh, contentType)
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	p.ImageUrl = url
	return nil
}

// uploadedURL is the image this request uploaded, if any.
func uploadedURL(in ProductInput, p *models.Product) string {
	if in.Image == nil {
		return ""
	}
	return p.ImageUrl
}
