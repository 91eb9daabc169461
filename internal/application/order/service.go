package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-replenishment/internal/application/ledger"
	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/jhoicas/stock-replenishment/pkg/keylock"
	"github.com/rs/zerolog"
)

// Service órdenes de compra a proveedores. La recepción (DELIVERED) contabiliza las compras;
// cancelar una orden ya recibida anula esos asientos en la misma transacción.
type Service struct {
	txRunner    ports.TxRunner
	orders      repository.OrderRepository
	locations   repository.LocationRepository
	stockables  repository.StockableRepository
	ledger      *ledger.Service
	locks       *keylock.Locker
	events      ports.EventPublisher
	lockTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewService construye el servicio de órdenes.
func NewService(
	txRunner ports.TxRunner,
	orders repository.OrderRepository,
	locations repository.LocationRepository,
	stockables repository.StockableRepository,
	ledgerSvc *ledger.Service,
	locks *keylock.Locker,
	events ports.EventPublisher,
	log zerolog.Logger,
) *Service {
	if events == nil {
		events = ports.NoopPublisher{}
	}
	if locks == nil {
		locks = keylock.New()
	}
	return &Service{
		txRunner:    txRunner,
		orders:      orders,
		locations:   locations,
		stockables:  stockables,
		ledger:      ledgerSvc,
		locks:       locks,
		events:      events,
		lockTimeout: 2 * time.Second,
		now:         time.Now,
		log:         log,
	}
}

func (s *Service) WithLockTimeout(d time.Duration) *Service {
	s.lockTimeout = d
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateOrderInput datos para crear una orden en borrador.
type CreateOrderInput struct {
	LocationID string
	SupplierID string
	Lines      []entity.OrderLine
	Comment    string
	CreatedBy  string
}

// CreateOrder crea el borrador de (ubicación, proveedor); domain.ErrDraftExists si ya hay uno.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	loc, err := s.location(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if in.SupplierID == "" {
		return nil, fmt.Errorf("%w: proveedor obligatorio", domain.ErrInvalidInput)
	}
	lines, err := s.normalizeLines(ctx, loc.CompanyID, in.Lines)
	if err != nil {
		return nil, err
	}
	now := s.now()
	o := &entity.Order{
		ID:         uuid.New().String(),
		CompanyID:  loc.CompanyID,
		LocationID: in.LocationID,
		SupplierID: in.SupplierID,
		Status:     entity.OrderDraft,
		Comment:    in.Comment,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.MergeLines(lines); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	err = s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		existing, err := r.Orders.FindDraft(ctx, in.LocationID, in.SupplierID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: orden %s", domain.ErrDraftExists, existing.ID)
		}
		return r.Orders.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, s.draftedEvent(o))
	return o, nil
}

// AddLines fusiona líneas en el borrador.
func (s *Service) AddLines(ctx context.Context, orderID string, lines []entity.OrderLine, comment string) (*entity.Order, error) {
	var out *entity.Order
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		o, err := s.loadDraft(ctx, r, orderID)
		if err != nil {
			return err
		}
		normalized, err := s.normalizeLines(ctx, o.CompanyID, lines)
		if err != nil {
			return err
		}
		if err := o.MergeLines(normalized); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		o.AppendComment(comment)
		o.UpdatedAt = s.now()
		out = o
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergeOrCreateDraft usado por la compra automática: fusiona en el borrador de (ubicación, proveedor)
// o lo crea. Serializado por par, con reintento si otro proceso crea el borrador primero.
func (s *Service) MergeOrCreateDraft(ctx context.Context, locationID, supplierID string, lines []entity.OrderLine, comment string) (*entity.Order, bool, error) {
	loc, err := s.location(ctx, locationID)
	if err != nil {
		return nil, false, err
	}
	normalized, err := s.normalizeLines(ctx, loc.CompanyID, lines)
	if err != nil {
		return nil, false, err
	}
	unlock, err := s.locks.Lock(ctx, "order:"+locationID+"->"+supplierID, s.lockTimeout)
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, false, fmt.Errorf("%w: orden %s/%s", domain.ErrLockTimeout, locationID, supplierID)
		}
		return nil, false, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		var (
			out     *entity.Order
			created bool
		)
		err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
			now := s.now()
			draft, err := r.Orders.FindDraft(ctx, locationID, supplierID)
			if err != nil {
				return err
			}
			if draft != nil {
				if err := draft.MergeLines(normalized); err != nil {
					return fmt.Errorf("%w: %v", domain.ErrConflict, err)
				}
				draft.AppendComment(comment)
				draft.UpdatedAt = now
				out = draft
				return r.Orders.Update(ctx, draft)
			}
			out = &entity.Order{
				ID:         uuid.New().String(),
				CompanyID:  loc.CompanyID,
				LocationID: locationID,
				SupplierID: supplierID,
				Status:     entity.OrderDraft,
				Comment:    comment,
				CreatedBy:  "system",
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := out.MergeLines(normalized); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
			created = true
			return r.Orders.Create(ctx, out)
		})
		if errors.Is(err, domain.ErrDraftExists) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if created {
			s.publish(ctx, s.draftedEvent(out))
		}
		return out, created, nil
	}
}

// Transition aplica una transición de flujo (crear, enviar a aprobación, aprobar, enviar, visto,
// completar). DELIVERED y CANCELLED tienen efectos en el libro y van por Receive y Cancel.
func (s *Service) Transition(ctx context.Context, orderID string, next entity.OrderStatus) (*entity.Order, error) {
	switch {
	case !next.Valid():
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, next)
	case next == entity.OrderDelivered || next == entity.OrderCancelled:
		return nil, fmt.Errorf("%w: use Receive o Cancel para %s", domain.ErrInvalidInput, next)
	}
	var out *entity.Order
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: orden %s", domain.ErrNotFound, orderID)
		}
		if err := o.TransitionTo(next, s.now()); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
		}
		out = o
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", out.ID).Str("status", string(out.Status)).Msg("orden actualizada")
	return out, nil
}

// Receive marca DELIVERED y contabiliza una compra por línea al costo por unidad base. Todo o nada.
func (s *Service) Receive(ctx context.Context, orderID, receivedBy string) (*entity.Order, error) {
	var out *entity.Order
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: orden %s", domain.ErrNotFound, orderID)
		}
		if !o.Status.CanTransitionTo(entity.OrderDelivered) {
			return fmt.Errorf("%w: orden %s en %s", domain.ErrInvalidTransition, o.ID, o.Status)
		}
		now := s.now()
		for i, l := range o.Lines {
			_, err := s.ledger.Post(ctx, r.Ledger, ledger.RecordInput{
				Type:              entity.TransactionPurchase,
				LocationID:        o.LocationID,
				Stockable:         l.Stockable,
				Quantity:          l.BaseQuantity(),
				UnitCost:          l.BaseUnitCost(),
				SourceReferenceID: o.ID,
				Date:              now,
				CreatedBy:         receivedBy,
			})
			if err != nil {
				return fmt.Errorf("%w: línea %d: %w", domain.ErrPostingFailed, i, err)
			}
		}
		if err := o.TransitionTo(entity.OrderDelivered, now); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
		}
		out = o
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("no se pudo recibir la orden")
		return nil, err
	}
	s.log.Info().Str("order_id", out.ID).Int("postings", len(out.Lines)).Msg("orden recibida")
	s.publish(ctx, ports.NewEvent(entity.EventOrderReceived, out.CompanyID, out.ID, s.now(), map[string]any{
		"location_id": out.LocationID,
		"supplier_id": out.SupplierID,
		"lines":       len(out.Lines),
	}))
	return out, nil
}

// Cancel cancela desde cualquier estado no terminal. Si la orden ya fue recibida, sus asientos
// de compra se eliminan en la misma transacción.
func (s *Service) Cancel(ctx context.Context, orderID string) (*entity.Order, error) {
	var (
		out    *entity.Order
		voided int64
	)
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: orden %s", domain.ErrNotFound, orderID)
		}
		wasDelivered := o.Status == entity.OrderDelivered
		if err := o.TransitionTo(entity.OrderCancelled, s.now()); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
		}
		if wasDelivered {
			n, err := r.Ledger.DeleteBySourceReferenceID(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("void purchases of order %s: %w", o.ID, err)
			}
			voided = n
		}
		out = o
		return r.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", out.ID).Int64("voided", voided).Msg("orden cancelada")
	s.publish(ctx, ports.NewEvent(entity.EventOrderCancelled, out.CompanyID, out.ID, s.now(), map[string]any{
		"voided_postings": voided,
	}))
	return out, nil
}

// DeleteDraft elimina una orden en DRAFT o CANCELLED.
func (s *Service) DeleteDraft(ctx context.Context, orderID string) error {
	return s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: orden %s", domain.ErrNotFound, orderID)
		}
		if o.Status != entity.OrderDraft && o.Status != entity.OrderCancelled {
			return fmt.Errorf("%w: solo se eliminan borradores o canceladas (%s)", domain.ErrConflict, o.Status)
		}
		return r.Orders.Delete(ctx, orderID)
	})
}

func (s *Service) GetByID(ctx context.Context, orderID string) (*entity.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: orden %s", domain.ErrNotFound, orderID)
	}
	return o, nil
}

func (s *Service) FindDraft(ctx context.Context, locationID, supplierID string) (*entity.Order, error) {
	return s.orders.FindDraft(ctx, locationID, supplierID)
}

func (s *Service) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.orders.ListByLocation(ctx, locationID, limit, max(offset, 0))
}

func (s *Service) ListByCompany(ctx context.Context, companyID string, status *entity.OrderStatus, limit, offset int) ([]*entity.Order, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, *status)
	}
	if limit <= 0 {
		limit = 20
	}
	return s.orders.ListByCompany(ctx, companyID, status, limit, max(offset, 0))
}

// ListOpenByCompany órdenes cuya mercancía aún no llegó (cuentan como stock entrante).
func (s *Service) ListOpenByCompany(ctx context.Context, companyID string) ([]*entity.Order, error) {
	return s.orders.ListOpenByCompany(ctx, companyID)
}

func (s *Service) loadDraft(ctx context.Context, r ports.TxRepos, orderID string) (*entity.Order, error) {
	o, err := r.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: orden %s", domain.ErrNotFound, orderID)
	}
	if o.Status != entity.OrderDraft {
		return nil, fmt.Errorf("%w: orden %s en %s", domain.ErrConflict, o.ID, o.Status)
	}
	return o, nil
}

func (s *Service) location(ctx context.Context, id string) (*entity.Location, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: ubicación obligatoria", domain.ErrInvalidInput)
	}
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, id)
	}
	return loc, nil
}

func (s *Service) normalizeLines(ctx context.Context, companyID string, lines []entity.OrderLine) ([]entity.OrderLine, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: la orden requiere al menos una línea", domain.ErrInvalidInput)
	}
	out := make([]entity.OrderLine, 0, len(lines))
	for i, l := range lines {
		if !l.Stockable.Valid() || !l.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: línea %d (%s, %s)", domain.ErrInvalidInput, i, l.Stockable, l.Quantity)
		}
		if l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: línea %d con precio negativo", domain.ErrInvalidInput, i)
		}
		info, err := s.stockables.GetInfo(ctx, l.Stockable)
		if err != nil {
			return nil, err
		}
		if info == nil {
			return nil, fmt.Errorf("%w: stockable %s", domain.ErrNotFound, l.Stockable)
		}
		if info.CompanyID != "" && info.CompanyID != companyID {
			return nil, fmt.Errorf("%w: stockable %s de otra empresa", domain.ErrInvalidInput, l.Stockable)
		}
		if l.Unit.IsZero() {
			l.Unit = info.BaseUnit
		}
		if l.Unit.Category != info.Category() {
			return nil, fmt.Errorf("%w: línea %d %s vs %s", domain.ErrIncompatibleUnit, i, l.Unit.Category, info.Category())
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Service) draftedEvent(o *entity.Order) entity.Event {
	return ports.NewEvent(entity.EventOrderDrafted, o.CompanyID, o.ID, s.now(), map[string]any{
		"location_id": o.LocationID,
		"supplier_id": o.SupplierID,
		"lines":       len(o.Lines),
	})
}

func (s *Service) publish(ctx context.Context, events ...entity.Event) {
	if err := s.events.Publish(ctx, events...); err != nil {
		s.log.Warn().Err(err).Int("events", len(events)).Msg("no se pudieron publicar eventos")
	}
}
