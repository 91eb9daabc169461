package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-replenishment/internal/application/dto"
	"github.com/jhoicas/stock-replenishment/internal/application/transfer"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// TransferHandler ciclo de vida de traslados entre ubicaciones.
type TransferHandler struct {
	svc   *transfer.Service
	scope tenantScope
}

func NewTransferHandler(svc *transfer.Service, scope tenantScope) *TransferHandler {
	return &TransferHandler{svc: svc, scope: scope}
}

// Create POST /api/transfers
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if _, err := h.scope.location(c, in.FromLocationID); err != nil {
		return writeError(c, err)
	}
	lines, err := dto.TransferLinesToEntity(in.Lines)
	if err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	t, err := h.svc.CreateTransfer(c.UserContext(), transfer.CreateTransferInput{
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Lines:          lines,
		Comment:        in.Comment,
		CreatedBy:      GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferFrom(t))
}

// List GET /api/transfers?status=&location_id=
func (h *TransferHandler) List(c *fiber.Ctx) error {
	p := page(c)
	var (
		list []*entity.Transfer
		err  error
	)
	if locID := c.Query("location_id"); locID != "" {
		if _, err := h.scope.location(c, locID); err != nil {
			return writeError(c, err)
		}
		list, err = h.svc.ListByLocation(c.UserContext(), locID, p.Limit, p.Offset)
	} else {
		var status *entity.TransferStatus
		if raw := c.Query("status"); raw != "" {
			s := entity.TransferStatus(raw)
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
	items := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		items = append(items, dto.TransferFrom(t))
	}
	return c.JSON(dto.NewListResponse(items, p))
}

// GetByID GET /api/transfers/:id
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TransferFrom(t))
}

// UpdateLines PUT /api/transfers/:id/lines (fusiona, o reemplaza con replace=true)
func (h *TransferHandler) UpdateLines(c *fiber.Ctx) error {
	t, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.TransferLinesRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	lines, err := dto.TransferLinesToEntity(in.Lines)
	if err != nil {
		return writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	if in.Replace {
		t, err = h.svc.ReplaceDraftLines(c.UserContext(), t.ID, lines)
	} else {
		t, err = h.svc.UpdateDraftWithLines(c.UserContext(), t.ID, lines, in.Comment)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TransferFrom(t))
}

// Send POST /api/transfers/:id/send
func (h *TransferHandler) Send(c *fiber.Ctx) error {
	return h.step(c, func(id string) (*entity.Transfer, error) { return h.svc.Send(c.UserContext(), id) })
}

// Receive POST /api/transfers/:id/receive
func (h *TransferHandler) Receive(c *fiber.Ctx) error {
	return h.step(c, func(id string) (*entity.Transfer, error) { return h.svc.Receive(c.UserContext(), id) })
}

// Complete POST /api/transfers/:id/complete (contabiliza salida y entrada en el libro)
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	return h.step(c, func(id string) (*entity.Transfer, error) {
		return h.svc.CompleteTransfer(c.UserContext(), id, GetUserID(c))
	})
}

// Cancel POST /api/transfers/:id/cancel
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	return h.step(c, func(id string) (*entity.Transfer, error) { return h.svc.Cancel(c.UserContext(), id) })
}

// Delete DELETE /api/transfers/:id (solo borradores)
func (h *TransferHandler) Delete(c *fiber.Ctx) error {
	t, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.DeleteDraft(c.UserContext(), t.ID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TransferHandler) step(c *fiber.Ctx, fn func(id string) (*entity.Transfer, error)) error {
	t, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	t, err = fn(t.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TransferFrom(t))
}

func (h *TransferHandler) load(c *fiber.Ctx) (*entity.Transfer, error) {
	id := c.Params("id")
	t, err := h.svc.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(c, t.CompanyID, "traslado", id); err != nil {
		return nil, err
	}
	return t, nil
}
