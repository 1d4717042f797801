package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/middleware"
	"github.com/yashrajoria/storefront-service/services"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	OrderIDHeader     = "X-Order-ID"

	msgCheckoutDone = "Checkout completed successfully."
)

// CheckoutController handles GET and POST /checkout/.
type CheckoutController struct {
	checkout services.CheckoutService
}

func NewCheckoutController(checkout services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// Summary handles GET /checkout/
func (cc *CheckoutController) Summary(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	view, err := cc.checkout.Summary(ctx.Request.Context(), userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"cart":     view,
		"messages": middleware.PopMessages(ctx),
	})
}

// Checkout handles POST /checkout/. A rejection sends the user back to the
// cart with an error message; success goes to the catalog.
func (cc *CheckoutController) Checkout(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	result, err := cc.checkout.Checkout(ctx.Request.Context(), userID, ctx.GetHeader(IdempotencyHeader))
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		middleware.AddMessage(ctx, middleware.LevelError, fmt.Sprintf("Not enough stock for %s.", stockErr.ItemName))
		ctx.Redirect(http.StatusSeeOther, viewCartPath)
		return
	case err != nil:
		fail(ctx, err)
		return
	}

	ctx.Header(OrderIDHeader, result.Order.ID.String())
	if !result.Replayed {
		middleware.AddMessage(ctx, middleware.LevelSuccess, msgCheckoutDone)
	}
	ctx.Redirect(http.StatusSeeOther, catalogPath)
}
