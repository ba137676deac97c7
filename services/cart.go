package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CartAction string

const (
	AddItem          CartAction = "addCartItem"
	IncreaseQuantity CartAction = "increaseQuantity"
	DecreaseQuantity CartAction = "decreaseQuantity"
	DeleteItem       CartAction = "deleteCartItem"
)

const cartWriteAttempts = 3

func ParseCartAction(s string) (CartAction, error) {
	switch a := CartAction(s); a {
	case AddItem, IncreaseQuantity, DecreaseQuantity, DeleteItem:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCartAction, s)
	}
}

// ApplyCartAction returns the cart after applying action to productID.
// The input slice is never modified and untouched lines keep their order.
// changed is false when there is nothing to write.
func ApplyCartAction(cart []models.CartItem, productID string, action CartAction) ([]models.CartItem, bool, error) {
	idx := -1
	for i, item := range cart {
		if item.ProductID == productID {
			idx = i
			break
		}
	}

	next := make([]models.CartItem, len(cart))
	copy(next, cart)

	switch action {
	case AddItem:
		if idx >= 0 {
			next[idx].Quantity++
			return next, true, nil
		}
		return append(next, models.CartItem{ProductID: productID, Quantity: 1}), true, nil
	case IncreaseQuantity:
		if idx < 0 {
			return nil, false, ErrItemNotInCart
		}
		next[idx].Quantity++
		return next, true, nil
	case DecreaseQuantity:
		if idx < 0 {
			return nil, false, ErrItemNotInCart
		}
		if next[idx].Quantity > 1 {
			next[idx].Quantity--
			return next, true, nil
		}
		return append(next[:idx], next[idx+1:]...), true, nil
	case DeleteItem:
		if idx < 0 {
			return next, false, nil
		}
		return append(next[:idx], next[idx+1:]...), true, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidCartAction, action)
	}
}

// Outcome is what a cart action tells the shopper.
type Outcome struct {
	Type    string
	Message string
}

type CartService struct {
	Products store.ProductStore
	Users    store.UserStore
}

func NewCartService(products store.ProductStore, users store.UserStore) *CartService {
	return &CartService{Products: products, Users: users}
}

// Apply runs one cart action for the signed-in user, re-reading and
// re-applying on a version conflict.
func (s *CartService) Apply(ctx context.Context, userID, productID, rawAction string) (Outcome, error) {
	if userID == "" {
		return Outcome{}, ErrNotAuthenticated
	}
	oid, err := bson.ObjectIDFromHex(productID)
	if err != nil {
		return Outcome{}, ErrInvalidProductID
	}
	action, err := ParseCartAction(rawAction)
	if err != nil {
		return Outcome{}, err
	}

	if action == AddItem {
		if _, err := s.Products.GetProduct(ctx, oid); err != nil {
			if errors.Is(err, store.ErrProductNotFound) {
				return Outcome{}, ErrProductNotFound
			}
			return Outcome{}, err
		}
	}

	for attempt := 0; attempt < cartWriteAttempts; attempt++ {
		user, err := s.Users.GetUserBySupabaseID(ctx, userID)
		if errors.Is(err, store.ErrUserNotFound) {
			return Outcome{}, ErrNotAuthenticated
		}
		if err != nil {
			return Outcome{}, err
		}

		next, changed, err := ApplyCartAction(user.Cart, productID, action)
		if err != nil {
			return Outcome{}, err
		}
		if !changed {
			return Outcome{Type: utils.FlashInfo, Message: "Product was not in your cart"}, nil
		}

		err = s.Users.ReplaceCart(ctx, userID, user.CartVersion, next)
		if errors.Is(err, store.ErrCartConflict) {
			continue
		}
		if errors.Is(err, store.ErrUserNotFound) {
			return Outcome{}, ErrNotAuthenticated
		}
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: utils.FlashSuccess, Message: successMessage(action, user.Cart, next)}, nil
	}
	return Outcome{}, ErrCartConflict
}

func successMessage(action CartAction, before, after []models.CartItem) string {
	switch action {
	case AddItem:
		return "Product added to cart"
	case IncreaseQuantity:
		return "Quantity increased"
	case DecreaseQuantity:
		if len(after) < len(before) {
			return "Product removed from cart"
		}
		return "Quantity decreased"
	default:
		return "Product removed from cart"
	}
}

type CartLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   models.Product  `json:"product"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartView struct {
	Lines    []CartLine      `json:"lines"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View joins the user's cart to the catalog. Lines whose product was deleted
// are left out.
func (s *CartService) View(ctx context.Context, userID string) (*CartView, error) {
	view := &CartView{Lines: []CartLine{}, Subtotal: decimal.Zero}
	if userID == "" {
		return view, nil
	}
	user, err := s.Users.GetUserBySupabaseID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}

	lines, err := joinCart(ctx, s.Products, user.Cart)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		view.Subtotal = view.Subtotal.Add(l.LineTotal)
		view.Count += l.Quantity
	}
	view.Lines = lines
	return view, nil
}

func joinCart(ctx context.Context, products store.ProductStore, cart []models.CartItem) ([]CartLine, error) {
	ids := make([]string, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	found, err := products.GetProductsByIDs(ctx, utils.StringsToObjectIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.Id.Hex()] = p
	}

	lines := make([]CartLine, 0, len(cart))
	for _, item := range cart {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   p,
			LineTotal: decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return lines, nil
}
