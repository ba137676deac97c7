package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderItem snapshots the product name and price at checkout time.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	UnitPrice float64 `bson:"unitPrice" json:"unitPrice"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

type Order struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string        `bson:"userId" json:"userId"`
	Email     string        `bson:"email" json:"email"`
	Items     []OrderItem   `bson:"items" json:"items"`
	Total     float64       `bson:"total" json:"total"`
	Status    OrderStatus   `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}
