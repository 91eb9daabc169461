package threshold

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service mínimos y niveles par por (stockable, ubicación). La última escritura gana.
type Service struct {
	thresholds repository.ThresholdRepository
	locations  repository.LocationRepository
	stockables repository.StockableRepository
	now        func() time.Time
	log        zerolog.Logger
}

func NewService(
	thresholds repository.ThresholdRepository,
	locations repository.LocationRepository,
	stockables repository.StockableRepository,
	log zerolog.Logger,
) *Service {
	return &Service{thresholds: thresholds, locations: locations, stockables: stockables, now: time.Now, log: log}
}

// Set crea o reemplaza el umbral. Exige 0 <= min <= par.
func (s *Service) Set(ctx context.Context, locationID string, st entity.Stockable, minOnHand, parLevel decimal.Decimal) (*entity.Threshold, error) {
	t := &entity.Threshold{
		LocationID: locationID,
		Stockable:  st,
		MinOnHand:  minOnHand,
		ParLevel:   parLevel,
		UpdatedAt:  s.now(),
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, locationID)
	}
	info, err := s.stockables.GetInfo(ctx, st)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: stockable %s", domain.ErrNotFound, st)
	}
	t.CompanyID = loc.CompanyID
	if err := s.thresholds.Upsert(ctx, t); err != nil {
		return nil, fmt.Errorf("upsert threshold: %w", err)
	}
	s.log.Debug().Str("location_id", locationID).Str("stockable", st.Key()).
		Str("min", minOnHand.String()).Str("par", parLevel.String()).Msg("umbral actualizado")
	return t, nil
}

// Get umbral vigente o domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, locationID string, st entity.Stockable) (*entity.Threshold, error) {
	t, err := s.thresholds.Get(ctx, locationID, st)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: umbral %s/%s", domain.ErrNotFound, locationID, st)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, locationID string, st entity.Stockable) error {
	return s.thresholds.Delete(ctx, locationID, st)
}

func (s *Service) ListByLocation(ctx context.Context, locationID string) ([]*entity.Threshold, error) {
	return s.thresholds.ListByLocation(ctx, locationID)
}

func (s *Service) ListByCompany(ctx context.Context, companyID string) ([]*entity.Threshold, error) {
	return s.thresholds.ListByCompany(ctx, companyID)
}
