package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/princinho/smartshop/database"
	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements every store interface on one database.
type MongoStore struct {
	products    *mongo.Collection
	users       *mongo.Collection
	orders      *mongo.Collection
	credentials *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		products:    db.Collection(database.ProductsCollection),
		users:       db.Collection(database.UsersCollection),
		orders:      db.Collection(database.OrdersCollection),
		credentials: db.Collection(database.CredentialsCollection),
	}
}

// Products

func (s *MongoStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.products.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (s *MongoStore) GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (s *MongoStore) GetProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	cursor, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products by id: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0, len(ids))
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (s *MongoStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	res, err := s.products.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		p.Id = oid
	}
	return nil
}

// UpdateProduct keeps the stored image when p.ImageUrl is empty.
func (s *MongoStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	set := bson.M{
		"name":        p.Name,
		"category":    p.Category,
		"price":       p.Price,
		"stock":       p.Stock,
		"status":      p.Status,
		"description": p.Description,
		"features":    p.Features,
	}
	if p.ImageUrl != "" {
		set["imageUrl"] = p.ImageUrl
	}

	res, err := s.products.UpdateByID(ctx, p.Id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.Id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id bson.ObjectID) error {
	if _, err := s.products.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete product %s: %w", id.Hex(), err)
	}
	return nil
}

func (s *MongoStore) AppendReview(ctx context.Context, id bson.ObjectID, r models.Review) error {
	res, err := s.products.UpdateByID(ctx, id, bson.M{"$push": bson.M{"reviews": r}})
	if err != nil {
		return fmt.Errorf("push review on %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *MongoStore) CountProducts(ctx context.Context) (int64, error) {
	return s.products.CountDocuments(ctx, bson.D{})
}

// Users

func (s *MongoStore) GetUserBySupabaseID(ctx context.Context, supabaseID string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"supabaseId": supabaseID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) EnsureUser(ctx context.Context, supabaseID, email string) (*models.User, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"supabaseId":  supabaseID,
			"email":       strings.ToLower(strings.TrimSpace(email)),
			"cart":        bson.A{},
			"cartVersion": int64(0),
			"createdAt":   now,
			"updatedAt":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"supabaseId": supabaseID}, update, opts).Decode(&u)
	if err != nil && utils.IsDuplicateKey(err) {
		// lost an upsert race against the unique index; the row exists now
		return s.GetUserBySupabaseID(ctx, supabaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &u, nil
}

// cartVersionFilter matches version 0 against documents written before the
// field existed.
func cartVersionFilter(supabaseID string, version int64) bson.M {
	if version == 0 {
		return bson.M{
			"supabaseId": supabaseID,
			"$or": bson.A{
				bson.M{"cartVersion": int64(0)},
				bson.M{"cartVersion": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"supabaseId": supabaseID, "cartVersion": version}
}

func (s *MongoStore) ReplaceCart(ctx context.Context, supabaseID string, version int64, cart []models.CartItem) error {
	if cart == nil {
		cart = []models.CartItem{}
	}
	update := bson.M{
		"$set": bson.M{"cart": cart, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"cartVersion": 1},
	}
	res, err := s.users.UpdateOne(ctx, cartVersionFilter(supabaseID, version), update)
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := s.users.CountDocuments(ctx, bson.M{"supabaseId": supabaseID})
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return ErrCartConflict
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// Orders

func (s *MongoStore) CreateOrder(ctx context.Context, o *models.Order) error {
	res, err := s.orders.InsertOne(ctx, o)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		o.ID = oid
	}
	return nil
}

func (s *MongoStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.orders.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// Credentials

func (s *MongoStore) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return s.findCredential(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoStore) GetCredentialByID(ctx context.Context, id bson.ObjectID) (*models.Credential, error) {
	return s.findCredential(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findCredential(ctx context.Context, filter bson.M) (*models.Credential, error) {
	var cred models.Credential
	err := s.credentials.FindOne(ctx, filter).Decode(&cred)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &cred, nil
}

func (s *MongoStore) CreateCredential(ctx context.Context, c *models.Credential) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	res, err := s.credentials.InsertOne(ctx, c)
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (s *MongoStore) UpdatePasswordHash(ctx context.Context, id bson.ObjectID, hash string) error {
	res, err := s.credentials.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (s *MongoStore) SeedCredential(ctx context.Context, email, hash string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC()

	// Only insert if it doesn't exist
	update := bson.M{
		"$setOnInsert": bson.M{
			"email":        email,
			"passwordHash": hash,
			"createdAt":    now,
			"updatedAt":    now,
		},
	}
	res, err := s.credentials.UpdateOne(ctx, bson.M{"email": email}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("seed credential: %w", err)
	}
	return res.UpsertedCount == 1, nil
}
