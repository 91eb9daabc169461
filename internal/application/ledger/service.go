package ledger

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service registra asientos en el libro de inventario y calcula el stock teórico.
// Nunca rechaza un asiento por el signo del saldo resultante: un saldo negativo es válido
// y lo reportan los informes.
type Service struct {
	txRunner   ports.TxRunner
	ledger     repository.StockTransactionRepository
	locations  repository.LocationRepository
	stockables repository.StockableRepository
	now        func() time.Time
	log        zerolog.Logger
}

// NewService construye el servicio del libro.
func NewService(
	txRunner ports.TxRunner,
	ledger repository.StockTransactionRepository,
	locations repository.LocationRepository,
	stockables repository.StockableRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		txRunner:   txRunner,
		ledger:     ledger,
		locations:  locations,
		stockables: stockables,
		now:        time.Now,
		log:        log,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordInput entrada para registrar un asiento.
// Para PURCHASE, TRANSFER_IN, TRANSFER_OUT y USAGE, Quantity es una magnitud positiva y el signo
// lo pone el tipo. Para ADJUSTMENT, Quantity lleva su propio signo.
type RecordInput struct {
	Type              entity.TransactionType
	LocationID        string
	Stockable         entity.Stockable
	Quantity          decimal.Decimal
	UnitCost          decimal.Decimal
	SourceReferenceID string
	Date              time.Time // cero = ahora
	CreatedBy         string
}

func (in RecordInput) validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: tipo de asiento %q", domain.ErrInvalidInput, in.Type)
	}
	if in.LocationID == "" || !in.Stockable.Valid() {
		return fmt.Errorf("%w: ubicación y stockable son obligatorios", domain.ErrInvalidInput)
	}
	if in.SourceReferenceID == "" {
		return fmt.Errorf("%w: source_reference_id obligatorio", domain.ErrInvalidInput)
	}
	if in.Quantity.IsZero() {
		return fmt.Errorf("%w: cantidad cero", domain.ErrInvalidInput)
	}
	if in.Type != entity.TransactionAdjustment && in.Quantity.IsNegative() {
		return fmt.Errorf("%w: cantidad negativa para %s", domain.ErrInvalidInput, in.Type)
	}
	if in.UnitCost.IsNegative() {
		return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	return nil
}

// Record valida referencias y persiste un asiento inmutable.
func (s *Service) Record(ctx context.Context, in RecordInput) (*entity.StockTransaction, error) {
	return s.Post(ctx, s.ledger, in)
}

// Post igual que Record pero escribe en el repositorio dado; los servicios de traslados y órdenes
// lo usan con el repositorio de su transacción para que todas las líneas se confirmen juntas.
func (s *Service) Post(ctx context.Context, ledger repository.StockTransactionRepository, in RecordInput) (*entity.StockTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	loc, err := s.locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, in.LocationID)
	}
	info, err := s.stockables.GetInfo(ctx, in.Stockable)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: stockable %s", domain.ErrNotFound, in.Stockable)
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	qty := in.Type.SignedQuantity(in.Quantity)
	tx := &entity.StockTransaction{
		ID:                uuid.New().String(),
		CompanyID:         loc.CompanyID,
		LocationID:        in.LocationID,
		Stockable:         in.Stockable,
		Type:              in.Type,
		Quantity:          qty,
		UnitCost:          in.UnitCost,
		TotalCost:         qty.Mul(in.UnitCost),
		SourceReferenceID: in.SourceReferenceID,
		Date:              date,
		CreatedAt:         now,
		CreatedBy:         in.CreatedBy,
	}
	if err := ledger.Create(ctx, tx); err != nil {
		return nil, err
	}
	if qty.IsNegative() {
		if b, err := ledger.Balance(ctx, in.LocationID, in.Stockable, now); err == nil && b.Quantity.IsNegative() {
			s.log.Warn().
				Str("location_id", in.LocationID).
				Str("stockable", in.Stockable.Key()).
				Str("on_hand", b.Quantity.String()).
				Msg("stock teórico negativo")
		}
	}
	return tx, nil
}

func (s *Service) record(ctx context.Context, typ entity.TransactionType, locationID string, st entity.Stockable,
	qty, cost decimal.Decimal, sourceReferenceID string, date time.Time) (*entity.StockTransaction, error) {
	return s.Record(ctx, RecordInput{
		Type:              typ,
		LocationID:        locationID,
		Stockable:         st,
		Quantity:          qty,
		UnitCost:          cost,
		SourceReferenceID: sourceReferenceID,
		Date:              date,
	})
}

// RecordPurchase entrada por compra.
func (s *Service) RecordPurchase(ctx context.Context, locationID string, st entity.Stockable, qty, cost decimal.Decimal, sourceReferenceID string, date time.Time) (*entity.StockTransaction, error) {
	return s.record(ctx, entity.TransactionPurchase, locationID, st, qty, cost, sourceReferenceID, date)
}

// RecordTransferIn entrada por traslado.
func (s *Service) RecordTransferIn(ctx context.Context, locationID string, st entity.Stockable, qty, cost decimal.Decimal, sourceReferenceID string, date time.Time) (*entity.StockTransaction, error) {
	return s.record(ctx, entity.TransactionTransferIn, locationID, st, qty, cost, sourceReferenceID, date)
}

// RecordTransferOut salida por traslado (se guarda negativa).
func (s *Service) RecordTransferOut(ctx context.Context, locationID string, st entity.Stockable, qty, cost decimal.Decimal, sourceReferenceID string, date time.Time) (*entity.StockTransaction, error) {
	return s.record(ctx, entity.TransactionTransferOut, locationID, st, qty, cost, sourceReferenceID, date)
}

// RecordUsage consumo (se guarda negativo).
func (s *Service) RecordUsage(ctx context.Context, locationID string, st entity.Stockable, qty, cost decimal.Decimal, sourceReferenceID string, date time.Time) (*entity.StockTransaction, error) {
	return s.record(ctx, entity.TransactionUsage, locationID, st, qty, cost, sourceReferenceID, date)
}

// RecordAdjustment ajuste con signo (conteo físico, merma, corrección).
func (s *Service) RecordAdjustment(ctx context.Context, locationID string, st entity.Stockable, qty, cost decimal.Decimal, sourceReferenceID string, date time.Time) (*entity.StockTransaction, error) {
	return s.record(ctx, entity.TransactionAdjustment, locationID, st, qty, cost, sourceReferenceID, date)
}

// DeleteBySourceReferenceID anula todos los asientos de un documento origen en una sola transacción.
func (s *Service) DeleteBySourceReferenceID(ctx context.Context, sourceReferenceID string) (int64, error) {
	if sourceReferenceID == "" {
		return 0, fmt.Errorf("%w: source_reference_id obligatorio", domain.ErrInvalidInput)
	}
	var deleted int64
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		n, err := r.Ledger.DeleteBySourceReferenceID(ctx, sourceReferenceID)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("source_reference_id", sourceReferenceID).Int64("deleted", deleted).Msg("asientos anulados")
	return deleted, nil
}

// TheoreticalOnHand suma con signo de las cantidades con date <= asOf, en unidad base.
func (s *Service) TheoreticalOnHand(ctx context.Context, locationID string, st entity.Stockable, asOf time.Time) (decimal.Decimal, error) {
	if locationID == "" || !st.Valid() {
		return decimal.Zero, fmt.Errorf("%w: ubicación y stockable son obligatorios", domain.ErrInvalidInput)
	}
	b, err := s.ledger.Balance(ctx, locationID, st, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Quantity, nil
}

// Valuation cantidad, valor y costo promedio del saldo teórico.
type Valuation struct {
	Stockable       entity.Stockable
	Quantity        decimal.Decimal
	Value           decimal.Decimal
	AverageUnitCost decimal.Decimal
}

// TheoreticalValue valorización del saldo teórico a una fecha.
func (s *Service) TheoreticalValue(ctx context.Context, locationID string, st entity.Stockable, asOf time.Time) (Valuation, error) {
	if locationID == "" || !st.Valid() {
		return Valuation{}, fmt.Errorf("%w: ubicación y stockable son obligatorios", domain.ErrInvalidInput)
	}
	b, err := s.ledger.Balance(ctx, locationID, st, asOf)
	if err != nil {
		return Valuation{}, err
	}
	return valuationOf(b), nil
}

func valuationOf(b repository.Balance) Valuation {
	return Valuation{
		Stockable:       b.Stockable,
		Quantity:        b.Quantity,
		Value:           b.Value,
		AverageUnitCost: inventory.AverageUnitCost(b.Quantity, b.Value),
	}
}

// CalculateTheoreticalOnHandUnified variante que recibe "insumo o sub-receta" como elección exclusiva.
func (s *Service) CalculateTheoreticalOnHandUnified(ctx context.Context, locationID string, itemID, subRecipeID *string, asOf time.Time) (decimal.Decimal, error) {
	st, err := entity.NewStockable(itemID, subRecipeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return s.TheoreticalOnHand(ctx, locationID, st, asOf)
}

// BalancesByCompany saldo actual por (ubicación, stockable); base de las decisiones de reposición.
func (s *Service) BalancesByCompany(ctx context.Context, companyID string, asOf time.Time) ([]repository.Balance, error) {
	return s.ledger.BalancesByCompany(ctx, companyID, asOf)
}

// BalancesByLocation valorización de cada stockable con movimientos en la ubicación.
func (s *Service) BalancesByLocation(ctx context.Context, locationID string, asOf time.Time) ([]Valuation, error) {
	if locationID == "" {
		return nil, fmt.Errorf("%w: ubicación obligatoria", domain.ErrInvalidInput)
	}
	balances, err := s.ledger.BalancesByLocation(ctx, locationID, asOf)
	if err != nil {
		return nil, err
	}
	vals := make([]Valuation, len(balances))
	for i, b := range balances {
		vals[i] = valuationOf(b)
	}
	return vals, nil
}

// DailyStockLevel saldo al cierre de un día para un stockable de la ubicación.
type DailyStockLevel struct {
	Date       time.Time
	LocationID string
	Stockable  entity.Stockable
	Quantity   decimal.Decimal
	Value      decimal.Decimal
}

// StockLevels secuencia perezosa y finita de saldos diarios entre start y end (inclusive).
// Cada recorrido vuelve a consultar el libro, por lo que la secuencia puede recorrerse de nuevo.
// Solo para reportes: la reposición usa siempre el saldo actual.
func (s *Service) StockLevels(ctx context.Context, locationID string, start, end time.Time) iter.Seq2[DailyStockLevel, error] {
	return func(yield func(DailyStockLevel, error) bool) {
		startDay, endDay := truncateDay(start), truncateDay(end)
		if locationID == "" || endDay.Before(startDay) {
			return
		}
		opening, err := s.ledger.BalancesByLocation(ctx, locationID, startDay.Add(-time.Nanosecond))
		if err != nil {
			yield(DailyStockLevel{}, err)
			return
		}
		movements, err := s.ledger.ListBetween(ctx, locationID, startDay, endDay.AddDate(0, 0, 1).Add(-time.Nanosecond))
		if err != nil {
			yield(DailyStockLevel{}, err)
			return
		}

		levels := make(map[entity.Stockable]*repository.Balance, len(opening))
		for i := range opening {
			b := opening[i]
			levels[b.Stockable] = &b
		}

		next := 0
		for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
			if err := ctx.Err(); err != nil {
				yield(DailyStockLevel{}, err)
				return
			}
			dayEnd := day.AddDate(0, 0, 1)
			for next < len(movements) && movements[next].Date.Before(dayEnd) {
				m := movements[next]
				b, ok := levels[m.Stockable]
				if !ok {
					b = &repository.Balance{LocationID: locationID, Stockable: m.Stockable}
					levels[m.Stockable] = b
				}
				b.Quantity = b.Quantity.Add(m.Quantity)
				b.Value = b.Value.Add(m.TotalCost)
				next++
			}
			for _, st := range sortedStockables(levels) {
				b := levels[st]
				if !yield(DailyStockLevel{
					Date:       day,
					LocationID: locationID,
					Stockable:  st,
					Quantity:   b.Quantity,
					Value:      b.Value,
				}, nil) {
					return
				}
			}
		}
	}
}

// ListByLocation asientos de una ubicación, más recientes primero.
func (s *Service) ListByLocation(ctx context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListByLocation(ctx, locationID, from, to, limit, offset)
}

// ListBySourceReferenceID asientos producidos por un documento origen.
func (s *Service) ListBySourceReferenceID(ctx context.Context, sourceReferenceID string) ([]*entity.StockTransaction, error) {
	return s.ledger.ListBySourceReferenceID(ctx, sourceReferenceID)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sortedStockables(levels map[entity.Stockable]*repository.Balance) []entity.Stockable {
	keys := make([]entity.Stockable, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key() < keys[j].Key() })
	return keys
}
