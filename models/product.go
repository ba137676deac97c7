package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "Active"
	ProductStatusInactive ProductStatus = "Inactive"
)

func (s ProductStatus) Valid() bool {
	return s == ProductStatusActive || s == ProductStatusInactive
}

// Review is embedded in Product and only ever appended.
type Review struct {
	Rating int       `bson:"rating" json:"rating" validate:"min=1,max=5"`
	Review string    `bson:"review" json:"review" validate:"required"`
	UserID string    `bson:"userId" json:"userId" validate:"required"`
	Date   time.Time `bson:"date" json:"date"`
}

type Product struct {
	Id          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Category    string        `bson:"category" json:"category"`
	Price       float64       `bson:"price" json:"price"`
	Stock       int           `bson:"stock" json:"stock"`
	Status      ProductStatus `bson:"status" json:"status"`
	ImageUrl    string        `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Features    []string      `bson:"features,omitempty" json:"features,omitempty"`
	Reviews     []Review      `bson:"reviews,omitempty" json:"reviews"`
}
