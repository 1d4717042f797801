package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/middleware"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/services"
)

// CatalogController serves the public catalog pages.
type CatalogController struct {
	catalog services.CatalogService
}

func NewCatalogController(catalog services.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// ListItems handles GET /
func (cc *CatalogController) ListItems(ctx *gin.Context) {
	cc.list(ctx, cc.catalog.ListItems)
}

// ListDiscounts handles GET /discounts/
func (cc *CatalogController) ListDiscounts(ctx *gin.Context) {
	cc.list(ctx, cc.catalog.ListDiscounts)
}

// ListNewAdditions handles GET /new_additions/
func (cc *CatalogController) ListNewAdditions(ctx *gin.Context) {
	cc.list(ctx, cc.catalog.ListNewAdditions)
}

// GetItem handles GET /items/:itemId/
func (cc *CatalogController) GetItem(ctx *gin.Context) {
	id, ok := pathID(ctx, "itemId", services.ErrItemNotFound)
	if !ok {
		return
	}

	item, err := cc.catalog.GetItem(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"item":     item,
		"messages": middleware.PopMessages(ctx),
	})
}

func (cc *CatalogController) list(ctx *gin.Context, fetch func(context.Context) ([]models.Item, error)) {
	items, err := fetch(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":    items,
		"messages": middleware.PopMessages(ctx),
	})
}
