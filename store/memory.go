package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/princinho/smartshop/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is a test double for the store interfaces with the same
// semantics as MongoStore, including the versioned cart write. The server
// always runs on MongoStore; the Fail* hooks exist for tests only.
type MemoryStore struct {
	mu          sync.Mutex
	products    []models.Product
	users       map[string]*models.User
	orders      []models.Order
	credentials []models.Credential

	// FailNextCartWrites forces the given number of ReplaceCart calls to
	// report a version conflict.
	FailNextCartWrites int
	// FailCreateOrder makes CreateOrder return this error when set.
	FailCreateOrder error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]*models.User{}}
}

func cloneProduct(p models.Product) models.Product {
	p.Features = append([]string(nil), p.Features...)
	p.Reviews = append([]models.Review(nil), p.Reviews...)
	return p
}

func (m *MemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

func (m *MemoryStore) productIndex(id bson.ObjectID) int {
	for i := range m.products {
		if m.products[i].Id == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) GetProduct(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.productIndex(id)
	if i < 0 {
		return nil, ErrProductNotFound
	}
	p := cloneProduct(m.products[i])
	return &p, nil
}

func (m *MemoryStore) GetProductsByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if i := m.productIndex(id); i >= 0 {
			out = append(out, cloneProduct(m.products[i]))
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Id.IsZero() {
		p.Id = bson.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	m.products = append(m.products, cloneProduct(*p))
	return nil
}

func (m *MemoryStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.productIndex(p.Id)
	if i < 0 {
		return ErrProductNotFound
	}
	cur := &m.products[i]
	cur.Name = p.Name
	cur.Category = p.Category
	cur.Price = p.Price
	cur.Stock = p.Stock
	cur.Status = p.Status
	cur.Description = p.Description
	cur.Features = append([]string(nil), p.Features...)
	if p.ImageUrl != "" {
		cur.ImageUrl = p.ImageUrl
	}
	return nil
}

func (m *MemoryStore) DeleteProduct(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.productIndex(id); i >= 0 {
		m.products = append(m.products[:i], m.products[i+1:]...)
	}
	return nil
}

func (m *MemoryStore) AppendReview(_ context.Context, id bson.ObjectID, r models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.productIndex(id)
	if i < 0 {
		return ErrProductNotFound
	}
	m.products[i].Reviews = append(m.products[i].Reviews, r)
	return nil
}

func (m *MemoryStore) CountProducts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.products)), nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Cart = copyCart(u.Cart)
	return &c
}

func (m *MemoryStore) GetUserBySupabaseID(_ context.Context, supabaseID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[supabaseID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *MemoryStore) EnsureUser(_ context.Context, supabaseID, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[supabaseID]; ok {
		return cloneUser(u), nil
	}
	now := time.Now().UTC()
	u := &models.User{
		ID:         bson.NewObjectID(),
		SupabaseID: supabaseID,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Cart:       []models.CartItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.users[supabaseID] = u
	return cloneUser(u), nil
}

func (m *MemoryStore) ReplaceCart(_ context.Context, supabaseID string, version int64, cart []models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[supabaseID]
	if !ok {
		return ErrUserNotFound
	}
	if m.FailNextCartWrites > 0 {
		m.FailNextCartWrites--
		u.CartVersion++ // someone else wrote first
		return ErrCartConflict
	}
	if u.CartVersion != version {
		return ErrCartConflict
	}
	u.Cart = copyCart(cart)
	u.CartVersion++
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateOrder != nil {
		return m.FailCreateOrder
	}
	if o.ID.IsZero() {
		o.ID = bson.NewObjectID()
	}
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	m.orders = append(m.orders, c)
	return nil
}

func (m *MemoryStore) ListOrders(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, len(m.orders))
	copy(out, m.orders)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) credentialIndex(match func(models.Credential) bool) int {
	for i := range m.credentials {
		if match(m.credentials[i]) {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	i := m.credentialIndex(func(c models.Credential) bool { return c.Email == email })
	if i < 0 {
		return nil, ErrCredentialNotFound
	}
	c := m.credentials[i]
	return &c, nil
}

func (m *MemoryStore) GetCredentialByID(_ context.Context, id bson.ObjectID) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.credentialIndex(func(c models.Credential) bool { return c.ID == id })
	if i < 0 {
		return nil, ErrCredentialNotFound
	}
	c := m.credentials[i]
	return &c, nil
}

func (m *MemoryStore) CreateCredential(_ context.Context, c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if m.credentialIndex(func(x models.Credential) bool { return x.Email == c.Email }) >= 0 {
		return ErrEmailExists
	}
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	m.credentials = append(m.credentials, *c)
	return nil
}

func (m *MemoryStore) UpdatePasswordHash(_ context.Context, id bson.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.credentialIndex(func(c models.Credential) bool { return c.ID == id })
	if i < 0 {
		return ErrCredentialNotFound
	}
	m.credentials[i].PasswordHash = hash
	m.credentials[i].UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) SeedCredential(ctx context.Context, email, hash string) (bool, error) {
	now := time.Now().UTC()
	err := m.CreateCredential(ctx, &models.Credential{Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now})
	if err == ErrEmailExists {
		return false, nil
	}
	return err == nil, err
}
