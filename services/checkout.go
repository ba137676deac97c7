package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/shopspring/decimal"
)

// CheckoutService turns a cart into an order. There is no payment step.
type CheckoutService struct {
	Products store.ProductStore
	Users    store.UserStore
	Orders   store.OrderStore
	now      func() time.Time
}

func NewCheckoutService(products store.ProductStore, users store.UserStore, orders store.OrderStore) *CheckoutService {
	return &CheckoutService{Products: products, Users: users, Orders: orders, now: time.Now}
}

func (s *CheckoutService) Checkout(ctx context.Context, userID string) (*models.Order, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := s.Users.GetUserBySupabaseID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}

	lines, err := joinCart(ctx, s.Products, user.Cart)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:    userID,
		Email:     user.Email,
		Items:     make([]models.OrderItem, 0, len(lines)),
		Status:    models.OrderStatusProcessing,
		CreatedAt: s.now().UTC(),
	}
	total := decimal.Zero
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			UnitPrice: l.Product.Price,
			Quantity:  l.Quantity,
		})
		total = total.Add(l.LineTotal)
	}
	order.Total = total.Round(2).InexactFloat64()

	// claim the cart first so a concurrent checkout cannot order it twice
	if err := s.Users.ReplaceCart(ctx, userID, user.CartVersion, nil); err != nil {
		if errors.Is(err, store.ErrCartConflict) {
			return nil, ErrCartConflict
		}
		return nil, fmt.Errorf("claim cart: %w", err)
	}

	if err := s.Orders.CreateOrder(ctx, order); err != nil {
		if rerr := s.Users.ReplaceCart(ctx, userID, user.CartVersion+1, user.Cart); rerr != nil {
			log.Printf("ERROR: restore cart for %s after failed checkout: %v", userID, rerr)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}
