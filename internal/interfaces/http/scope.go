package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-replenishment/internal/application/dto"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

// tenantScope verifica que los recursos pedidos pertenezcan a la empresa del token.
// Un recurso de otra empresa se informa como inexistente.
type tenantScope struct {
	locations repository.LocationRepository
}

func (s tenantScope) location(c *fiber.Ctx, id string) (*entity.Location, error) {
	loc, err := s.locations.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if loc == nil || loc.CompanyID != GetCompanyID(c) {
		return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, id)
	}
	return loc, nil
}

func ownedBy(c *fiber.Ctx, companyID, kind, id string) error {
	if companyID != GetCompanyID(c) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return nil
}

func page(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	p.DefaultPage()
	return p
}

// queryTime acepta RFC3339 o YYYY-MM-DD; ausente devuelve def.
func queryTime(c *fiber.Ctx, key string, def time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s debe ser RFC3339 o YYYY-MM-DD", domain.ErrInvalidInput, key)
	}
	return t, nil
}

// queryStockable lee ?item_id= o ?sub_recipe_id=.
func queryStockable(c *fiber.Ctx) (entity.Stockable, error) {
	var ref dto.StockableRef
	if v := c.Query("item_id"); v != "" {
		ref.ItemID = &v
	}
	if v := c.Query("sub_recipe_id"); v != "" {
		ref.SubRecipeID = &v
	}
	st, err := ref.ToEntity()
	if err != nil {
		return entity.Stockable{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return st, nil
}
