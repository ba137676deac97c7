package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/dto"
	"github.com/princinho/smartshop/middleware"
	"github.com/princinho/smartshop/services"
	"github.com/princinho/smartshop/utils"
)

// GET /dashboard
func DashboardOverview(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ov, err := app.Dashboard.Overview(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"overview": ov,
			"toast":    middleware.FlashFrom(c),
			"user":     viewer(c, app),
		})
	}
}

// GET /dashboard/products
func DashboardProducts(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := app.Admin.ListProducts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"products": products,
			"toast":    middleware.FlashFrom(c),
		})
	}
}

// POST /dashboard/products
func DashboardProductAction(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.ProductForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}
		ctx := c.Request.Context()
		in := services.ProductInput{
			ID:          form.ProductID,
			Name:        form.Name,
			Category:    form.Category,
			Price:       form.Price,
			Stock:       form.Stock,
			Status:      form.Status,
			Description: form.Description,
			Features:    form.Features,
			ImageURL:    form.ImageURL,
			Image:       form.Image,
		}

		var (
			err     error
			message string
		)
		switch form.Action {
		case "addProduct":
			_, err = app.Admin.AddProduct(ctx, in)
			message = "Product added"
		case "updateProduct":
			_, err = app.Admin.UpdateProduct(ctx, in)
			message = "Product updated"
		case "deleteProduct":
			err = app.Admin.DeleteProduct(ctx, form.ProductID)
			message = "Product deleted"
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
			return
		}

		if err != nil {
			respondAdminError(c, err)
			return
		}
		redirectWithFlash(c, app, "/dashboard/products", utils.FlashSuccess, message)
	}
}

func respondAdminError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "fields": ve.Fields})
	case errors.Is(err, services.ErrInvalidProductID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
	case errors.Is(err, services.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	default:
		respondError(c, err)
	}
}

// GET /dashboard/orders
func DashboardOrders(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := app.Dashboard.ListOrders(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// GET /dashboard/customers
func DashboardCustomers(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		customers, err := app.Dashboard.ListCustomers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"customers": customers})
	}
}
