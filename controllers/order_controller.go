package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/middleware"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/services"
)

// OrderController serves the order history.
type OrderController struct {
	orders services.OrderService
}

func NewOrderController(orders services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ListOrders handles GET /my_orders/
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	orders, err := oc.orders.ListOrders(ctx.Request.Context(), userID)
	if err != nil {
		fail(ctx, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"orders":   orders,
		"messages": middleware.PopMessages(ctx),
	})
}

// GetOrder handles GET /my_orders/:orderId/
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	orderID, ok := pathID(ctx, "orderId", services.ErrOrderNotFound)
	if !ok {
		return
	}

	order, err := oc.orders.GetOrder(ctx.Request.Context(), userID, orderID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
