package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/services"
)

// AdminController exposes the catalog edits available to admins.
type AdminController struct {
	catalog services.CatalogService
}

func NewAdminController(catalog services.CatalogService) *AdminController {
	return &AdminController{catalog: catalog}
}

// CreateItem handles POST /admin/items
func (ac *AdminController) CreateItem(ctx *gin.Context) {
	var req models.CreateItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	item, err := ac.catalog.CreateItem(ctx.Request.Context(), &req)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"item": item})
}

// SetStock handles PUT /admin/items/:itemId/stock
func (ac *AdminController) SetStock(ctx *gin.Context) {
	itemID, ok := pathID(ctx, "itemId", services.ErrItemNotFound)
	if !ok {
		return
	}

	var req models.SetStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	item, err := ac.catalog.SetStock(ctx.Request.Context(), itemID, *req.Quantity)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"item": item})
}
