package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/authbridge"
	"github.com/princinho/smartshop/config"
	"github.com/princinho/smartshop/middleware"
	"github.com/princinho/smartshop/services"
	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
)

// App carries the dependencies every handler needs.
type App struct {
	Config    *config.Config
	Auth      authbridge.Provider
	Flash     *utils.FlashStore
	Users     store.UserStore
	Catalog   *services.CatalogService
	Cart      *services.CartService
	Reviews   *services.ReviewService
	Admin     *services.AdminService
	Checkout  *services.CheckoutService
	Dashboard *services.DashboardService
	// Ping checks the database for /healthz.
	Ping func(ctx context.Context) error
}

// redirectWithFlash queues a flash and answers a form post with 303.
func redirectWithFlash(c *gin.Context, app *App, location, flashType, message string) {
	if err := app.Flash.Set(c, utils.Flash{Message: message, Type: flashType}); err != nil {
		log.Println("ERROR: set flash:", err)
	}
	c.Redirect(http.StatusSeeOther, location)
}

func redirectWithError(c *gin.Context, app *App, location string, err error) {
	if status(err) == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	redirectWithFlash(c, app, location, utils.FlashError, services.UserMessage(err))
}

func status(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidProductID), errors.Is(err, services.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidCartAction),
		errors.Is(err, services.ErrItemNotInCart),
		errors.Is(err, services.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrCartConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := status(err)
	if code == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(code, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// viewer is the user block every page loader returns.
func viewer(c *gin.Context, app *App) gin.H {
	user := middleware.UserFrom(c)
	if user == nil {
		return nil
	}
	return gin.H{
		"id":      user.ID,
		"email":   user.Email,
		"isAdmin": middleware.IsAdmin(user, app.Config.AdminEmail),
	}
}
