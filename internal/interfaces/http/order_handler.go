package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-replenishment/internal/application/dto"
	"github.com/jhoicas/stock-replenishment/internal/application/order"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// OrderHandler órdenes de compra a proveedores.
type OrderHandler struct {
	svc   *order.Service
	scope tenantScope
}

func NewOrderHandler(svc *order.Service, scope tenantScope) *OrderHandler {
	return &OrderHandler{svc: svc, scope: scope}
}

// Create POST /api/orders
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if _, err := h.scope.location(c, in.LocationID); err != nil {
		return writeError(c, err)
	}
	lines, err := dto.OrderLinesToEntity(in.Lines)
	if err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	o, err := h.svc.CreateOrder(c.UserContext(), order.CreateOrderInput{
		LocationID: in.LocationID,
		SupplierID: in.SupplierID,
		Lines:      lines,
		Comment:    in.Comment,
		CreatedBy:  GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OrderFrom(o))
}

// List GET /api/orders?status=&location_id=
func (h *OrderHandler) List(c *fiber.Ctx) error {
	p := page(c)
	var (
		list []*entity.Order
		err  error
	)
	if locID := c.Query("location_id"); locID != "" {
		if _, err := h.scope.location(c, locID); err != nil {
			return writeError(c, err)
		}
		list, err = h.svc.ListByLocation(c.UserContext(), locID, p.Limit, p.Offset)
	} else {
		var status *entity.OrderStatus
		if raw := c.Query("status"); raw != "" {
			s := entity.OrderStatus(raw)
			if !s.Valid() {
				return badRequest(c, "VALIDATION", "status desconocido: "+raw)
			}
			status = &s
		}
		list, err = h.svc.ListByCompany(c.UserContext(), GetCompanyID(c), status, p.Limit, p.Offset)
	}
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, dto.OrderFrom(o))
	}
	return c.JSON(dto.NewListResponse(items, p))
}

// GetByID GET /api/orders/:id
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFrom(o))
}

// AddLines POST /api/orders/:id/lines
func (h *OrderHandler) AddLines(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var in struct {
		Lines   []dto.OrderLineDTO `json:"lines"`
		Comment string             `json:"comment"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	lines, err := dto.OrderLinesToEntity(in.Lines)
	if err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	o, err = h.svc.AddLines(c.UserContext(), o.ID, lines, in.Comment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFrom(o))
}

// Transition POST /api/orders/:id/transition {"status": "APPROVED"}
func (h *OrderHandler) Transition(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.OrderTransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	o, err = h.svc.Transition(c.UserContext(), o.ID, entity.OrderStatus(in.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFrom(o))
}

// Receive POST /api/orders/:id/receive (contabiliza PURCHASE por línea)
func (h *OrderHandler) Receive(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	o, err = h.svc.Receive(c.UserContext(), o.ID, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFrom(o))
}

// Cancel POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	o, err = h.svc.Cancel(c.UserContext(), o.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderFrom(o))
}

// Delete DELETE /api/orders/:id (solo borradores)
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	o, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.DeleteDraft(c.UserContext(), o.ID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OrderHandler) load(c *fiber.Ctx) (*entity.Order, error) {
	id := c.Params("id")
	o, err := h.svc.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(c, o.CompanyID, "orden", id); err != nil {
		return nil, err
	}
	return o, nil
}
