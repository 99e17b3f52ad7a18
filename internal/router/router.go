package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/cooper538/eshop-demo-sub000/api/handler"
)

type Handlers struct {
	Inventory *apiHandler.InventoryHandler
	Health    *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.POST("/api/v1/products", handlers.Inventory.CreateProduct)
	r.GET("/api/v1/products/{productID}", handlers.Inventory.GetProduct)
	r.POST("/api/v1/inventory/reserve", handlers.Inventory.Reserve)
	r.POST("/api/v1/inventory/release", handlers.Inventory.Release)
	r.GET("/api/v1/inventory/{productID}", handlers.Inventory.GetAvailability)

	return r
}
