// Package store persists products, users, orders and local credentials.
package store

import (
	"context"
	"errors"

	"github.com/princinho/smartshop/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCartConflict       = errors.New("cart was modified concurrently")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrEmailExists        = errors.New("email already registered")
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	// UpdateProduct overwrites the admin-editable fields. Reviews are left alone.
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id bson.ObjectID) error
	AppendReview(ctx context.Context, id bson.ObjectID, r models.Review) error
	CountProducts(ctx context.Context) (int64, error)
}

type UserStore interface {
	GetUserBySupabaseID(ctx context.Context, supabaseID string) (*models.User, error)
	EnsureUser(ctx context.Context, supabaseID, email string) (*models.User, error)
	// ReplaceCart writes the whole cart only if the stored version still
	// equals version, and bumps the version on success.
	ReplaceCart(ctx context.Context, supabaseID string, version int64, cart []models.CartItem) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)
}

type CredentialStore interface {
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	GetCredentialByID(ctx context.Context, id bson.ObjectID) (*models.Credential, error)
	CreateCredential(ctx context.Context, c *models.Credential) error
	UpdatePasswordHash(ctx context.Context, id bson.ObjectID, hash string) error
	// SeedCredential inserts the credential unless the email already exists.
	// It reports whether a new document was created.
	SeedCredential(ctx context.Context, email, hash string) (bool, error)
}

func copyCart(cart []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(cart))
	copy(out, cart)
	return out
}
