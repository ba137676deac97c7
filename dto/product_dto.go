package dto

import "mime/multipart"

// ProductForm is the admin product form. Fields are validated by the admin
// service so that every missing field is reported together.
type ProductForm struct {
	Action      string                `form:"_action"`
	ProductID   string                `form:"productId"`
	Name        string                `form:"name"`
	Category    string                `form:"category"`
	Price       string                `form:"price"`
	Stock       string                `form:"stock"`
	Status      string                `form:"status"`
	Description string                `form:"description"`
	Features    string                `form:"features"`
	ImageURL    string                `form:"imageUrl"`
	Image       *multipart.FileHeader `form:"image"`
}
