package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/middleware"
)

func RegisterRoutes(r *gin.Engine, app *App) {
	r.Use(middleware.CurrentUser(app.Auth))

	// page loaders that return the toast consume it
	page := middleware.Flash(app.Flash)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", Healthz(app))

	r.GET("/", page, Home(app))
	r.GET("/products", GetProducts(app))
	r.GET("/shop/products/:productId", page, GetProduct(app))
	r.POST("/shop/products/:productId", AddReview(app))
	r.POST("/cart", CartAction(app))
	r.POST("/checkout", Checkout(app))

	r.GET("/login", page, AuthPage(app))
	r.POST("/login", Login(app))
	r.GET("/signup", page, AuthPage(app))
	r.POST("/signup", Signup(app))
	r.POST("/logout", Logout(app))
	r.GET("/forgot-password", page, AuthPage(app))
	r.POST("/forgot-password", ForgotPassword(app))
	r.GET("/update-password", page, AuthPage(app))
	r.POST("/update-password", UpdatePassword(app))

	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.RequireAdmin(app.Config.AdminEmail))
	{
		dashboard.GET("", page, DashboardOverview(app))
		dashboard.GET("/products", page, DashboardProducts(app))
		dashboard.POST("/products", DashboardProductAction(app))
		dashboard.GET("/orders", DashboardOrders(app))
		dashboard.GET("/customers", DashboardCustomers(app))
	}
}

func Healthz(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if app.Ping != nil {
			if err := app.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
