package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-replenishment/internal/application/ledger"
	"github.com/jhoicas/stock-replenishment/internal/application/order"
	"github.com/jhoicas/stock-replenishment/internal/application/threshold"
	"github.com/jhoicas/stock-replenishment/internal/application/transfer"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger     *ledger.Service
	Thresholds *threshold.Service
	Transfers  *transfer.Service
	Orders     *order.Service
	Locations  repository.LocationRepository
	Jobs       JobRunner
	Tokens     TokenVerifier
}

// Router registra las rutas de la API. Todo bajo /api exige Bearer Token; la empresa sale del token.
func Router(app *fiber.App, deps RouterDeps) {
	scope := tenantScope{locations: deps.Locations}
	api := app.Group("/api", AuthMiddleware(deps.Tokens))

	// Stock y umbrales por ubicación
	stockHandler := NewStockHandler(deps.Ledger, deps.Thresholds, scope)
	locations := api.Group("/locations/:id")
	locations.Get("/balances", stockHandler.Balances)
	locations.Get("/on-hand", stockHandler.OnHand)
	locations.Get("/stock-levels", stockHandler.StockLevels)
	locations.Get("/transactions", stockHandler.Transactions)
	locations.Post("/adjustments", RequireRole(RoleBodeguero), stockHandler.RecordAdjustment)
	locations.Get("/thresholds", stockHandler.ListThresholds)
	locations.Put("/thresholds", RequireRole(RoleBodeguero), stockHandler.SetThreshold)
	locations.Delete("/thresholds", RequireRole(RoleBodeguero), stockHandler.DeleteThreshold)

	// Traslados
	transferHandler := NewTransferHandler(deps.Transfers, scope)
	transfers := api.Group("/transfers")
	transfers.Get("/", transferHandler.List)
	transfers.Get("/:id", transferHandler.GetByID)
	// Los roles se exigen por ruta: un Group con handlers los aplicaría también a las lecturas.
	bodeguero := RequireRole(RoleBodeguero)
	transfers.Post("/", bodeguero, transferHandler.Create)
	transfers.Put("/:id/lines", bodeguero, transferHandler.UpdateLines)
	transfers.Post("/:id/send", bodeguero, transferHandler.Send)
	transfers.Post("/:id/receive", bodeguero, transferHandler.Receive)
	transfers.Post("/:id/complete", bodeguero, transferHandler.Complete)
	transfers.Post("/:id/cancel", bodeguero, transferHandler.Cancel)
	transfers.Delete("/:id", bodeguero, transferHandler.Delete)

	// Órdenes de compra
	orderHandler := NewOrderHandler(deps.Orders, scope)
	orders := api.Group("/orders")
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)
	comprador := RequireRole(RoleComprador)
	orders.Post("/", comprador, orderHandler.Create)
	orders.Post("/:id/lines", comprador, orderHandler.AddLines)
	orders.Post("/:id/transition", comprador, orderHandler.Transition)
	orders.Post("/:id/receive", RequireRole(RoleComprador, RoleBodeguero), orderHandler.Receive)
	orders.Post("/:id/cancel", comprador, orderHandler.Cancel)
	orders.Delete("/:id", comprador, orderHandler.Delete)

	// Operaciones del scheduler
	opsHandler := NewOpsHandler(deps.Jobs)
	ops := api.Group("/ops/jobs", RequireRole(RoleAdmin))
	ops.Get("/", opsHandler.List)
	ops.Post("/:job/run", opsHandler.Run)
	ops.Get("/:job/report", opsHandler.Report)
}
