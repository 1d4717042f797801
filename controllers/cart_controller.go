package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/middleware"
	"github.com/yashrajoria/storefront-service/services"
)

const msgNotEnoughStock = "Cannot add more of this item, not enough stock."

// CartController handles the cart pages.
type CartController struct {
	cart services.CartService
}

func NewCartController(cart services.CartService) *CartController {
	return &CartController{cart: cart}
}

// ViewCart handles GET /view_cart/
func (cc *CartController) ViewCart(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	view, err := cc.cart.ViewCart(ctx.Request.Context(), userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"cart":     view,
		"messages": middleware.PopMessages(ctx),
	})
}

// AddToCart handles POST /add_to_cart/:itemId/ and redirects to the local
// path in ?next= or to the catalog. Running out of stock is reported as a
// flash message, not an error.
func (cc *CartController) AddToCart(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "itemId", services.ErrItemNotFound)
	if !ok {
		return
	}

	_, err := cc.cart.AddToCart(ctx.Request.Context(), userID, itemID)
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		middleware.AddMessage(ctx, middleware.LevelError, msgNotEnoughStock)
	case err != nil:
		fail(ctx, err)
		return
	}

	ctx.Redirect(http.StatusSeeOther, safeNext(ctx.Query("next"), catalogPath))
}

// RemoveFromCart handles POST /remove_from_cart/:itemId/
func (cc *CartController) RemoveFromCart(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "itemId", services.ErrLineItemNotFound)
	if !ok {
		return
	}

	if _, err := cc.cart.RemoveFromCart(ctx.Request.Context(), userID, itemID); err != nil {
		fail(ctx, err)
		return
	}

	ctx.Redirect(http.StatusSeeOther, viewCartPath)
}
