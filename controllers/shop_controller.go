package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/dto"
	"github.com/princinho/smartshop/middleware"
	"github.com/princinho/smartshop/services"
	"github.com/princinho/smartshop/utils"
)

// GET /?category=
func Home(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		category := strings.TrimSpace(c.Query("category"))

		page, err := app.Catalog.List(ctx, category)
		if err != nil {
			respondError(c, err)
			return
		}
		cart, err := app.Cart.View(ctx, middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products":       page.Products,
			"categories":     page.Categories,
			"activeCategory": page.ActiveCategory,
			"cart":           cart,
			"toast":          middleware.FlashFrom(c),
			"user":           viewer(c, app),
		})
	}
}

// GET /products
func GetProducts(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := app.Catalog.List(c.Request.Context(), "")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": page.Products})
	}
}

// GET /shop/products/:productId
func GetProduct(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := app.Catalog.Get(c.Request.Context(), strings.TrimSpace(c.Param("productId")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"product":       detail.Product,
			"reviewSummary": detail.Summary,
			"toast":         middleware.FlashFrom(c),
			"user":          viewer(c, app),
		})
	}
}

// POST /shop/products/:productId
// The reviewer is always the session user; a userId form field is ignored.
func AddReview(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := strings.TrimSpace(c.Param("productId"))
		back := "/shop/products/" + productID

		var form dto.ReviewForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithError(c, app, back, &services.ValidationError{Fields: []string{"rating", "review"}})
			return
		}
		// an unparsable rating becomes 0 and fails the 1..5 rule
		rating := utils.ParseIntDefault(form.Rating, 0)

		_, err := app.Reviews.AddReview(c.Request.Context(), productID, middleware.UserID(c), rating, form.Review)
		if err != nil {
			if errors.Is(err, services.ErrNotAuthenticated) {
				redirectWithFlash(c, app, back, utils.FlashError, "You must be logged in to leave a review.")
				return
			}
			redirectWithError(c, app, back, err)
			return
		}
		redirectWithFlash(c, app, back, utils.FlashSuccess, "Thank you for your review!")
	}
}

// POST /cart
func CartAction(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.CartForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithError(c, app, "/", services.ErrInvalidCartAction)
			return
		}

		out, err := app.Cart.Apply(c.Request.Context(), middleware.UserID(c), strings.TrimSpace(form.ProductID), form.Action)
		if err != nil {
			redirectWithError(c, app, "/", err)
			return
		}
		redirectWithFlash(c, app, "/", out.Type, out.Message)
	}
}

// POST /checkout
func Checkout(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := app.Checkout.Checkout(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			redirectWithError(c, app, "/", err)
			return
		}
		redirectWithFlash(c, app, "/", utils.FlashSuccess, "Order "+order.ID.Hex()+" placed")
	}
}
