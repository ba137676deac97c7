package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	ProductsCollection    = "products"
	UsersCollection       = "users"
	OrdersCollection      = "orders"
	CredentialsCollection = "auth_users"
)

// Connect opens the shared client and pings the primary. Callers keep the
// returned client for the life of the process.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Println("INFO: connected to MongoDB")
	return client, nil
}

// Ping is used by the health check.
func Ping(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the unique indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string]mongo.IndexModel{
		UsersCollection: {
			Keys:    bson.D{{Key: "supabaseId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		CredentialsCollection: {
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		OrdersCollection: {
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}
	for col, model := range indexes {
		if _, err := db.Collection(col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", col, err)
		}
	}
	return nil
}
