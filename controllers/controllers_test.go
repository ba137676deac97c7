package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/authbridge"
	"github.com/princinho/smartshop/config"
	"github.com/princinho/smartshop/middleware"
	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/services"
	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const adminEmail = "admin@shop.test"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *store.MemoryStore
	auth   *authbridge.LocalProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AdminEmail:    adminEmail,
		SessionSecret: "session-secret",
		Auth: config.AuthConfig{
			Provider:      config.AuthProviderLocal,
			JWTSecret:     "jwt-secret",
			AccessTTL:     time.Hour,
			ResetRedirect: "/update-password",
		},
	}
	s := store.NewMemoryStore()
	auth := authbridge.NewLocalProvider(s, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	require.NoError(t, auth.SeedAdmin(context.Background(), adminEmail, "admin-pass"))

	app := &App{
		Config:    cfg,
		Auth:      auth,
		Flash:     utils.NewFlashStore(cfg.SessionSecret, false, ""),
		Users:     s,
		Catalog:   services.NewCatalogService(s),
		Cart:      services.NewCartService(s, s),
		Reviews:   services.NewReviewService(s),
		Admin:     services.NewAdminService(s, nil, nil),
		Checkout:  services.NewCheckoutService(s, s, s),
		Dashboard: services.NewDashboardService(s, s, s),
		Ping:      func(context.Context) error { return nil },
	}
	r := gin.New()
	RegisterRoutes(r, app)
	return &testEnv{router: r, store: s, auth: auth}
}

// signIn returns a session cookie for a fresh shopper (or the admin).
func (e *testEnv) signIn(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	s, err := e.auth.SignIn(ctx, email, password)
	if err != nil {
		s, err = e.auth.SignUp(ctx, email, password)
	}
	require.NoError(t, err)
	_, err = e.store.EnsureUser(ctx, s.User.ID, s.User.Email)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.AccessTokenCookie, Value: s.AccessToken}
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// toastAfter follows a form redirect to its Location and returns the flash
// that page renders.
func (e *testEnv) toastAfter(t *testing.T, w *httptest.ResponseRecorder, cookies ...*http.Cookie) map[string]string {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, w.Code)
	flash := cookie(w, utils.FlashCookie)
	require.NotNil(t, flash, "expected a flash cookie")

	page := e.do(t, http.MethodGet, w.Header().Get("Location"), nil, append(cookies, flash)...)
	require.Equal(t, http.StatusOK, page.Code, page.Body.String())
	var body struct {
		Toast map[string]string `json:"toast"`
	}
	require.NoError(t, json.Unmarshal(page.Body.Bytes(), &body))
	return body.Toast
}

func seed(t *testing.T, s *store.MemoryStore, name, category string, price float64) models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: category, Price: price, Stock: 3, Status: models.ProductStatusActive, Description: "d"}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return *p
}

func TestHome_Anonymous(t *testing.T) {
	e := newTestEnv(t)
	seed(t, e.store, "Lamp", "Home", 20)
	seed(t, e.store, "Pan", "Kitchen", 30)

	w := e.do(t, http.MethodGet, "/?category=Kitchen", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Products       []models.Product `json:"products"`
		Categories     []string         `json:"categories"`
		ActiveCategory string           `json:"activeCategory"`
		User           map[string]any   `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Pan", body.Products[0].Name)
	assert.Equal(t, []string{"Home", "Kitchen"}, body.Categories)
	assert.Equal(t, "Kitchen", body.ActiveCategory)
	assert.Nil(t, body.User)
}

func TestCart_RequiresSignIn(t *testing.T) {
	e := newTestEnv(t)
	lamp := seed(t, e.store, "Lamp", "Home", 20)

	w := e.do(t, http.MethodPost, "/cart", url.Values{"productId": {lamp.Id.Hex()}, "_action": {"addCartItem"}})
	assert.Equal(t, "/", w.Header().Get("Location"))
	toast := e.toastAfter(t, w)
	assert.Equal(t, utils.FlashError, toast["type"])
	assert.Equal(t, "Please sign in first", toast["message"])
}

func TestCart_AddAndView(t *testing.T) {
	e := newTestEnv(t)
	lamp := seed(t, e.store, "Lamp", "Home", 19.99)
	session := e.signIn(t, "shopper@x.com", "shopper-pass")

	for i := 0; i < 2; i++ {
		w := e.do(t, http.MethodPost, "/cart", url.Values{"productId": {lamp.Id.Hex()}, "_action": {"addCartItem"}, "count": {"1"}}, session)
		require.Equal(t, http.StatusSeeOther, w.Code)
	}

	w := e.do(t, http.MethodGet, "/", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Cart struct {
			Lines []struct {
				ProductID string `json:"productId"`
				Quantity  int    `json:"quantity"`
			} `json:"lines"`
			Subtotal string `json:"subtotal"`
		} `json:"cart"`
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, 2, body.Cart.Lines[0].Quantity)
	assert.Equal(t, "39.98", body.Cart.Subtotal)
	assert.Equal(t, false, body.User["isAdmin"])

	w = e.do(t, http.MethodPost, "/cart", url.Values{"productId": {lamp.Id.Hex()}, "_action": {"explode"}}, session)
	toast := e.toastAfter(t, w)
	assert.Equal(t, utils.FlashError, toast["type"])
}

func TestCheckout(t *testing.T) {
	e := newTestEnv(t)
	lamp := seed(t, e.store, "Lamp", "Home", 10)
	session := e.signIn(t, "shopper@x.com", "shopper-pass")

	w := e.do(t, http.MethodPost, "/checkout", nil, session)
	assert.Equal(t, "Your cart is empty", e.toastAfter(t, w)["message"])

	e.do(t, http.MethodPost, "/cart", url.Values{"productId": {lamp.Id.Hex()}, "_action": {"addCartItem"}}, session)
	w = e.do(t, http.MethodPost, "/checkout", nil, session)
	assert.Equal(t, utils.FlashSuccess, e.toastAfter(t, w)["type"])

	orders, err := e.store.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 10.0, orders[0].Total)
}

func TestProductDetail(t *testing.T) {
	e := newTestEnv(t)
	lamp := seed(t, e.store, "Lamp", "Home", 10)

	w := e.do(t, http.MethodGet, "/shop/products/"+lamp.Id.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reviewSummary"`)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/shop/products/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/shop/products/"+bson.NewObjectID().Hex(), nil).Code)
}

func TestAddReview_UsesSessionUser(t *testing.T) {
	e := newTestEnv(t)
	lamp := seed(t, e.store, "Lamp", "Home", 10)
	session := e.signIn(t, "shopper@x.com", "shopper-pass")
	target := "/shop/products/" + lamp.Id.Hex()

	w := e.do(t, http.MethodPost, target, url.Values{"rating": {"5"}, "review": {"Great"}, "userId": {"someone-else"}}, session)
	assert.Equal(t, target, w.Header().Get("Location"))
	assert.Equal(t, "Thank you for your review!", e.toastAfter(t, w)["message"])

	got, err := e.store.GetProduct(context.Background(), lamp.Id)
	require.NoError(t, err)
	require.Len(t, got.Reviews, 1)
	assert.NotEqual(t, "someone-else", got.Reviews[0].UserID)
	assert.NotEmpty(t, got.Reviews[0].UserID)

	w = e.do(t, http.MethodPost, target, url.Values{"rating": {"9"}, "review": {"Great"}}, session)
	assert.Equal(t, utils.FlashError, e.toastAfter(t, w)["type"])

	w = e.do(t, http.MethodPost, target, url.Values{"rating": {"five"}, "review": {"Great"}}, session)
	assert.Equal(t, "Please check: rating", e.toastAfter(t, w)["message"])

	w = e.do(t, http.MethodPost, target, url.Values{"rating": {"5"}, "review": {"Anon"}})
	assert.Equal(t, "You must be logged in to leave a review.", e.toastAfter(t, w)["message"])

	got, err = e.store.GetProduct(context.Background(), lamp.Id)
	require.NoError(t, err)
	assert.Len(t, got.Reviews, 1)
}

func TestDashboard_Gate(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	shopper := e.signIn(t, "shopper@x.com", "shopper-pass")
	w = e.do(t, http.MethodGet, "/dashboard/products", nil, shopper)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	admin := e.signIn(t, adminEmail, "admin-pass")
	for _, path := range []string{"/dashboard", "/dashboard/products", "/dashboard/orders", "/dashboard/customers"} {
		assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, path, nil, admin).Code, path)
	}
}

func TestDashboard_ProductActions(t *testing.T) {
	e := newTestEnv(t)
	admin := e.signIn(t, adminEmail, "admin-pass")
	ctx := context.Background()

	w := e.do(t, http.MethodPost, "/dashboard/products", url.Values{"_action": {"addProduct"}, "name": {"Lamp"}}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required fields","fields":["category","price","stock","status","description"]}`, w.Body.String())

	valid := url.Values{
		"_action":     {"addProduct"},
		"name":        {"Lamp"},
		"category":    {"Home"},
		"price":       {"12.50"},
		"stock":       {"3"},
		"status":      {"Active"},
		"description": {"Warm light"},
		"features":    {"Dimmable\nLED"},
	}
	w = e.do(t, http.MethodPost, "/dashboard/products", valid, admin)
	assert.Equal(t, "/dashboard/products", w.Header().Get("Location"))
	assert.Equal(t, "Product added", e.toastAfter(t, w, admin)["message"])

	products, err := e.store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"Dimmable", "LED"}, products[0].Features)

	update := url.Values{}
	for k, v := range valid {
		update[k] = v
	}
	update.Set("_action", "updateProduct")
	update.Set("productId", bson.NewObjectID().Hex())
	w = e.do(t, http.MethodPost, "/dashboard/products", update, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	update.Set("productId", products[0].Id.Hex())
	update.Set("price", "15")
	w = e.do(t, http.MethodPost, "/dashboard/products", update, admin)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = e.do(t, http.MethodPost, "/dashboard/products", url.Values{"_action": {"deleteProduct"}}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/dashboard/products", url.Values{"_action": {"deleteProduct"}, "productId": {products[0].Id.Hex()}}, admin)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	n, err := e.store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	w = e.do(t, http.MethodPost, "/dashboard/products", url.Values{"_action": {"archive"}}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndLogout(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/login", url.Values{"email": {adminEmail}, "password": {"wrong-pass"}})
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, "Invalid email or password", e.toastAfter(t, w)["message"])

	w = e.do(t, http.MethodPost, "/login", url.Values{"email": {adminEmail}, "password": {"admin-pass"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	session := cookie(w, middleware.AccessTokenCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	users, err := e.store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/dashboard", nil, session).Code)

	w = e.do(t, http.MethodPost, "/logout", nil, session)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	cleared := cookie(w, middleware.AccessTokenCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestSignup(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/signup", url.Values{"email": {"new@x.com"}, "password": {"new-pass"}})
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NotNil(t, cookie(w, middleware.AccessTokenCookie))

	w = e.do(t, http.MethodPost, "/signup", url.Values{"email": {"new@x.com"}, "password": {"new-pass"}})
	assert.Equal(t, "/signup", w.Header().Get("Location"))
	assert.Equal(t, "An account with this email already exists", e.toastAfter(t, w)["message"])
}

func TestPasswordFlows(t *testing.T) {
	e := newTestEnv(t)
	session := e.signIn(t, "shopper@x.com", "shopper-pass")

	w := e.do(t, http.MethodPost, "/forgot-password", url.Values{"email": {"shopper@x.com"}})
	assert.Equal(t, "Check your email for the reset link", e.toastAfter(t, w)["message"])

	w = e.do(t, http.MethodPost, "/update-password", url.Values{"password": {"abcdef1"}, "confirmPassword": {"abcdef2"}}, session)
	assert.Equal(t, "Passwords do not match", e.toastAfter(t, w)["message"])

	w = e.do(t, http.MethodPost, "/update-password", url.Values{"password": {"abcdef1"}}, session)
	assert.Equal(t, "All fields are required", e.toastAfter(t, w)["message"])

	w = e.do(t, http.MethodPost, "/update-password", url.Values{"password": {"abcdef1"}, "confirmPassword": {"abcdef1"}}, session)
	assert.Equal(t, "/", w.Header().Get("Location"))

	_, err := e.auth.SignIn(context.Background(), "shopper@x.com", "abcdef1")
	assert.NoError(t, err)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/ping", nil).Code)
	w := e.do(t, http.MethodGet, "/healthz", nil)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFlash_SurvivesNonPageRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/login", url.Values{"email": {adminEmail}, "password": {"wrong-pass"}})
	require.Equal(t, "/login", w.Header().Get("Location"))
	flash := cookie(w, utils.FlashCookie)
	require.NotNil(t, flash)

	for _, path := range []string{"/products", "/healthz", "/ping", "/no-such-page"} {
		r := e.do(t, http.MethodGet, path, nil, flash)
		assert.Nil(t, cookie(r, utils.FlashCookie), "%s must not clear the flash", path)
	}

	page := e.do(t, http.MethodGet, "/login", nil, flash)
	require.Equal(t, http.StatusOK, page.Code)
	assert.JSONEq(t, `{"toast":{"message":"Invalid email or password","type":"error"},"user":null}`, page.Body.String())
	cleared := cookie(page, utils.FlashCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestAuthPages(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/login", "/signup", "/forgot-password", "/update-password"} {
		w := e.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"toast":null,"user":null}`, w.Body.String(), path)
	}
}
