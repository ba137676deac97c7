package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CartItem references a product by its hex id; the product itself stays in
// the catalog.
type CartItem struct {
	ProductID string `bson:"productId" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// User is the application's view of an account, keyed by the auth
// provider's user id.
type User struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	SupabaseID  string        `bson:"supabaseId" json:"supabaseId"`
	Email       string        `bson:"email" json:"email"`
	Cart        []CartItem    `bson:"cart" json:"cart"`
	CartVersion int64         `bson:"cartVersion" json:"-"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Credential backs the local auth provider only.
type Credential struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash" json:"-"` // never expose
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}
