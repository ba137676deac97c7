package services

import (
	"context"
	"time"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/shopspring/decimal"
)

type DashboardService struct {
	Products store.ProductStore
	Users    store.UserStore
	Orders   store.OrderStore
}

func NewDashboardService(products store.ProductStore, users store.UserStore, orders store.OrderStore) *DashboardService {
	return &DashboardService{Products: products, Users: users, Orders: orders}
}

type Overview struct {
	Products      int64           `json:"products"`
	Orders        int             `json:"orders"`
	Customers     int             `json:"customers"`
	Revenue       decimal.Decimal `json:"revenue"`
	PendingOrders int             `json:"pendingOrders"`
	RecentOrders  []models.Order  `json:"recentOrders"`
}

const recentOrdersShown = 5

// Overview sums revenue over every order that was not cancelled.
func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	products, err := s.Products.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.Orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Products:  products,
		Orders:    len(orders),
		Customers: len(users),
		Revenue:   decimal.Zero,
	}
	for _, o := range orders {
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		ov.Revenue = ov.Revenue.Add(decimal.NewFromFloat(o.Total))
		if o.Status == models.OrderStatusProcessing {
			ov.PendingOrders++
		}
	}
	ov.RecentOrders = orders[:min(len(orders), recentOrdersShown)]
	return ov, nil
}

func (s *DashboardService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.Orders.ListOrders(ctx)
}

type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CartItems int       `json:"cartItems"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *DashboardService) ListCustomers(ctx context.Context) ([]Customer, error) {
	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Customer, 0, len(users))
	for _, u := range users {
		n := 0
		for _, item := range u.Cart {
			n += item.Quantity
		}
		out = append(out, Customer{ID: u.SupabaseID, Email: u.Email, CartItems: n, CreatedAt: u.CreatedAt})
	}
	return out, nil
}
