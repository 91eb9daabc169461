package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-replenishment/internal/application/dto"
	"github.com/jhoicas/stock-replenishment/internal/application/ledger"
	"github.com/jhoicas/stock-replenishment/internal/application/threshold"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// StockHandler saldos teóricos, movimientos, ajustes y umbrales por ubicación.
type StockHandler struct {
	ledger     *ledger.Service
	thresholds *threshold.Service
	scope      tenantScope
	now        func() time.Time
}

func NewStockHandler(ledgerSvc *ledger.Service, thresholds *threshold.Service, scope tenantScope) *StockHandler {
	return &StockHandler{ledger: ledgerSvc, thresholds: thresholds, scope: scope, now: time.Now}
}

// Balances GET /api/locations/:id/balances?as_of=
func (h *StockHandler) Balances(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	asOf, err := queryTime(c, "as_of", h.now())
	if err != nil {
		return writeError(c, err)
	}
	vals, err := h.ledger.BalancesByLocation(c.UserContext(), loc.ID, asOf)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.BalanceResponse, 0, len(vals))
	for _, v := range vals {
		out = append(out, dto.BalanceResponse{
			LocationID: loc.ID, Stockable: dto.StockableRefFrom(v.Stockable),
			Quantity: v.Quantity, Value: v.Value, AverageUnitCost: v.AverageUnitCost,
		})
	}
	return c.JSON(out)
}

// OnHand GET /api/locations/:id/on-hand?item_id=|sub_recipe_id=&as_of=
func (h *StockHandler) OnHand(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	st, err := queryStockable(c)
	if err != nil {
		return writeError(c, err)
	}
	asOf, err := queryTime(c, "as_of", h.now())
	if err != nil {
		return writeError(c, err)
	}
	v, err := h.ledger.TheoreticalValue(c.UserContext(), loc.ID, st, asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BalanceResponse{
		LocationID: loc.ID, Stockable: dto.StockableRefFrom(st),
		Quantity: v.Quantity, Value: v.Value, AverageUnitCost: v.AverageUnitCost,
	})
}

// StockLevels GET /api/locations/:id/stock-levels?from=&to=  (saldos diarios)
func (h *StockHandler) StockLevels(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTime(c, "to", h.now())
	if err != nil {
		return writeError(c, err)
	}
	from, err := queryTime(c, "from", to.AddDate(0, 0, -6))
	if err != nil {
		return writeError(c, err)
	}
	if to.Sub(from) > 366*24*time.Hour {
		return badRequest(c, "VALIDATION", "el rango no puede superar un año")
	}
	out := []dto.StockLevelResponse{}
	for lvl, err := range h.ledger.StockLevels(c.UserContext(), loc.ID, from, to) {
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, dto.StockLevelResponse{
			Date: lvl.Date.Format(time.DateOnly), Stockable: dto.StockableRefFrom(lvl.Stockable),
			Quantity: lvl.Quantity, Value: lvl.Value,
		})
	}
	return c.JSON(out)
}

// Transactions GET /api/locations/:id/transactions?from=&to=&limit=&offset=
func (h *StockHandler) Transactions(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	var from, to *time.Time
	if c.Query("from") != "" {
		t, err := queryTime(c, "from", time.Time{})
		if err != nil {
			return writeError(c, err)
		}
		from = &t
	}
	if c.Query("to") != "" {
		t, err := queryTime(c, "to", time.Time{})
		if err != nil {
			return writeError(c, err)
		}
		to = &t
	}
	p := page(c)
	list, err := h.ledger.ListByLocation(c.UserContext(), loc.ID, from, to, p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.StockTransactionResponse, 0, len(list))
	for _, t := range list {
		items = append(items, dto.StockTransactionFrom(t))
	}
	return c.JSON(dto.NewListResponse(items, p))
}

// RecordAdjustment POST /api/locations/:id/adjustments
func (h *StockHandler) RecordAdjustment(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	var in dto.RecordAdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	st, err := in.StockableRef.ToEntity()
	if err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	rec := ledger.RecordInput{
		Type: entity.TransactionAdjustment, LocationID: loc.ID, Stockable: st,
		Quantity: in.Quantity, UnitCost: in.UnitCost, SourceReferenceID: in.SourceReferenceID,
		CreatedBy: GetUserID(c),
	}
	if in.Date != nil {
		rec.Date = *in.Date
	}
	tx, err := h.ledger.Record(c.UserContext(), rec)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockTransactionFrom(tx))
}

// ListThresholds GET /api/locations/:id/thresholds
func (h *StockHandler) ListThresholds(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.thresholds.ListByLocation(c.UserContext(), loc.ID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ThresholdResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.ThresholdFrom(t))
	}
	return c.JSON(out)
}

// SetThreshold PUT /api/locations/:id/thresholds (última escritura gana)
func (h *StockHandler) SetThreshold(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	var in dto.ThresholdRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	st, err := in.StockableRef.ToEntity()
	if err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	t, err := h.thresholds.Set(c.UserContext(), loc.ID, st, in.MinOnHand, in.ParLevel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ThresholdFrom(t))
}

// DeleteThreshold DELETE /api/locations/:id/thresholds?item_id=|sub_recipe_id=
func (h *StockHandler) DeleteThreshold(c *fiber.Ctx) error {
	loc, err := h.scope.location(c, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	st, err := queryStockable(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.thresholds.Delete(c.UserContext(), loc.ID, st); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
