package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-service/controllers"
	"github.com/yashrajoria/storefront-service/middleware"
)

// Controllers groups every handler the router mounts.
type Controllers struct {
	Catalog  *controllers.CatalogController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController
	Admin    *controllers.AdminController
}

// RegisterStorefrontRoutes sets up the catalog, cart, checkout, order and
// admin routes. Trailing slashes follow the public URL scheme. authn is
// the middleware.AuthMiddleware instance guarding user and admin routes.
func RegisterStorefrontRoutes(r *gin.Engine, c Controllers, authn gin.HandlerFunc) {
	// Public catalog
	r.GET("/", c.Catalog.ListItems)
	r.GET("/discounts/", c.Catalog.ListDiscounts)
	r.GET("/new_additions/", c.Catalog.ListNewAdditions)
	r.GET("/items/:itemId/", c.Catalog.GetItem)

	// Signed-in users
	user := r.Group("/")
	user.Use(authn)
	{
		user.GET("/view_cart/", c.Cart.ViewCart)
		user.POST("/add_to_cart/:itemId/", c.Cart.AddToCart)
		user.POST("/remove_from_cart/:itemId/", c.Cart.RemoveFromCart)

		user.GET("/checkout/", c.Checkout.Summary)
		user.POST("/checkout/", c.Checkout.Checkout)

		user.GET("/my_orders/", c.Orders.ListOrders)
		user.GET("/my_orders/:orderId/", c.Orders.GetOrder)
	}

	admin := r.Group("/admin")
	admin.Use(authn, middleware.AdminOnly())
	{
		admin.POST("/items", c.Admin.CreateItem)
		admin.PUT("/items/:itemId/stock", c.Admin.SetStock)
	}
}
