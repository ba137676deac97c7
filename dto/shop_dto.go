package dto

type CartForm struct {
	ProductID string `form:"productId"`
	Action    string `form:"_action"`
	// Count is echoed by the product card and otherwise ignored.
	Count string `form:"count"`
}

type ReviewForm struct {
	Rating string `form:"rating"`
	Review string `form:"review"`
}
