package transfer

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
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/jhoicas/stock-replenishment/pkg/keylock"
	"github.com/rs/zerolog"
)

const defaultLockTimeout = 2 * time.Second

// Service máquina de estados de traslados entre ubicaciones de una misma empresa.
// Solo la finalización (COMPLETED) toca el libro: una salida en origen y una entrada en destino
// por línea, todas en la misma transacción.
type Service struct {
	txRunner    ports.TxRunner
	transfers   repository.TransferRepository
	locations   repository.LocationRepository
	stockables  repository.StockableRepository
	ledger      *ledger.Service
	locks       *keylock.Locker
	events      ports.EventPublisher
	lockTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewService construye el servicio de traslados.
func NewService(
	txRunner ports.TxRunner,
	transfers repository.TransferRepository,
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
		transfers:   transfers,
		locations:   locations,
		stockables:  stockables,
		ledger:      ledgerSvc,
		locks:       locks,
		events:      events,
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
		log:         log,
	}
}

// WithLockTimeout espera máxima por la sección crítica de un par (origen, destino).
func (s *Service) WithLockTimeout(d time.Duration) *Service {
	s.lockTimeout = d
	return s
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateTransferInput datos para crear un traslado en borrador.
type CreateTransferInput struct {
	FromLocationID string
	ToLocationID   string
	Lines          []entity.TransferLine
	Comment        string
	CreatedBy      string
}

// CreateTransfer crea un borrador. Si ya existe uno para el par devuelve domain.ErrDraftExists.
func (s *Service) CreateTransfer(ctx context.Context, in CreateTransferInput) (*entity.Transfer, error) {
	companyID, err := s.resolvePair(ctx, in.FromLocationID, in.ToLocationID)
	if err != nil {
		return nil, err
	}
	lines, bases, err := s.normalizeLines(ctx, companyID, in.Lines)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &entity.Transfer{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Status:         entity.TransferDraft,
		Comment:        in.Comment,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := t.MergeLines(lines, bases); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	err = s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		existing, err := r.Transfers.FindDraftBetween(ctx, in.FromLocationID, in.ToLocationID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: traslado %s", domain.ErrDraftExists, existing.ID)
		}
		return r.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("transfer_id", t.ID).Str("from", t.FromLocationID).Str("to", t.ToLocationID).
		Int("lines", len(t.Lines)).Msg("traslado creado en borrador")
	s.publish(ctx, s.draftedEvent(t))
	return t, nil
}

// UpdateDraftWithLines fusiona líneas en el borrador y agrega el comentario al historial.
func (s *Service) UpdateDraftWithLines(ctx context.Context, transferID string, lines []entity.TransferLine, comment string) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		t, err := s.loadDraft(ctx, r, transferID)
		if err != nil {
			return err
		}
		normalized, bases, err := s.normalizeLines(ctx, t.CompanyID, lines)
		if err != nil {
			return err
		}
		if err := t.MergeLines(normalized, bases); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		t.AppendComment(comment)
		t.UpdatedAt = s.now()
		out = t
		return r.Transfers.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceDraftLines reemplaza las líneas del borrador (edición de cantidades por la ubicación destino).
func (s *Service) ReplaceDraftLines(ctx context.Context, transferID string, lines []entity.TransferLine) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		t, err := s.loadDraft(ctx, r, transferID)
		if err != nil {
			return err
		}
		normalized, bases, err := s.normalizeLines(ctx, t.CompanyID, lines)
		if err != nil {
			return err
		}
		t.Lines = nil
		if err := t.MergeLines(normalized, bases); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		t.UpdatedAt = s.now()
		out = t
		return r.Transfers.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergeOrCreateDraft punto de entrada del scheduler: reutiliza el borrador del par o crea uno.
// Serializado por par; si otro proceso gana la carrera del índice único, recarga y fusiona.
// Devuelve created=true cuando el borrador es nuevo.
func (s *Service) MergeOrCreateDraft(ctx context.Context, fromLocationID, toLocationID string, lines []entity.TransferLine, comment string) (*entity.Transfer, bool, error) {
	companyID, err := s.resolvePair(ctx, fromLocationID, toLocationID)
	if err != nil {
		return nil, false, err
	}
	normalized, bases, err := s.normalizeLines(ctx, companyID, lines)
	if err != nil {
		return nil, false, err
	}

	unlock, err := s.locks.Lock(ctx, pairKey(fromLocationID, toLocationID), s.lockTimeout)
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, false, fmt.Errorf("%w: par %s→%s", domain.ErrLockTimeout, fromLocationID, toLocationID)
		}
		return nil, false, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		var (
			out     *entity.Transfer
			created bool
		)
		err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
			now := s.now()
			draft, err := r.Transfers.FindDraftBetween(ctx, fromLocationID, toLocationID)
			if err != nil {
				return err
			}
			if draft != nil {
				if err := draft.MergeLines(normalized, bases); err != nil {
					return fmt.Errorf("%w: %v", domain.ErrConflict, err)
				}
				draft.AppendComment(comment)
				draft.UpdatedAt = now
				out = draft
				return r.Transfers.Update(ctx, draft)
			}
			out = &entity.Transfer{
				ID:             uuid.New().String(),
				CompanyID:      companyID,
				FromLocationID: fromLocationID,
				ToLocationID:   toLocationID,
				Status:         entity.TransferDraft,
				Comment:        comment,
				CreatedBy:      "system",
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := out.MergeLines(normalized, bases); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
			created = true
			return r.Transfers.Create(ctx, out)
		})
		if errors.Is(err, domain.ErrDraftExists) && attempt == 0 {
			s.log.Debug().Str("from", fromLocationID).Str("to", toLocationID).Msg("borrador creado en paralelo, se fusiona")
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

// Send DRAFT → SENT.
func (s *Service) Send(ctx context.Context, transferID string) (*entity.Transfer, error) {
	return s.transition(ctx, transferID, entity.TransferSent)
}

// Receive SENT → RECEIVED. No contabiliza: eso ocurre al completar.
func (s *Service) Receive(ctx context.Context, transferID string) (*entity.Transfer, error) {
	return s.transition(ctx, transferID, entity.TransferReceived)
}

// Cancel lleva a CANCELLED desde cualquier estado abierto. No hay asientos que revertir.
func (s *Service) Cancel(ctx context.Context, transferID string) (*entity.Transfer, error) {
	t, err := s.transition(ctx, transferID, entity.TransferCancelled)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ports.NewEvent(entity.EventTransferCancelled, t.CompanyID, t.ID, s.now(), map[string]any{
		"from_location_id": t.FromLocationID,
		"to_location_id":   t.ToLocationID,
	}))
	return t, nil
}

// CompleteTransfer RECEIVED → COMPLETED con sus asientos: por cada línea una salida en origen y una
// entrada en destino, valorizadas al costo promedio del origen. Si cualquier asiento falla no se
// escribe ninguno y el error envuelve domain.ErrPostingFailed.
func (s *Service) CompleteTransfer(ctx context.Context, transferID, completedBy string) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		t, err := r.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
		}
		if !t.Status.CanTransitionTo(entity.TransferCompleted) {
			return fmt.Errorf("%w: traslado %s en %s", domain.ErrInvalidTransition, t.ID, t.Status)
		}

		now := s.now()
		for i, line := range t.Lines {
			qty := line.BaseQuantity()
			src, err := r.Ledger.Balance(ctx, t.FromLocationID, line.Stockable, now)
			if err != nil {
				return fmt.Errorf("%w: línea %d: %w", domain.ErrPostingFailed, i, err)
			}
			cost := inventory.AverageUnitCost(src.Quantity, src.Value)
			for _, post := range []ledger.RecordInput{
				{Type: entity.TransactionTransferOut, LocationID: t.FromLocationID},
				{Type: entity.TransactionTransferIn, LocationID: t.ToLocationID},
			} {
				post.Stockable = line.Stockable
				post.Quantity = qty
				post.UnitCost = cost
				post.SourceReferenceID = t.ID
				post.Date = now
				post.CreatedBy = completedBy
				if _, err := s.ledger.Post(ctx, r.Ledger, post); err != nil {
					return fmt.Errorf("%w: línea %d (%s): %w", domain.ErrPostingFailed, i, post.Type, err)
				}
			}
		}
		if err := t.TransitionTo(entity.TransferCompleted, now); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
		}
		out = t
		return r.Transfers.Update(ctx, t)
	})
	if err != nil {
		s.log.Error().Err(err).Str("transfer_id", transferID).Msg("no se pudo completar el traslado")
		return nil, err
	}
	s.log.Info().Str("transfer_id", out.ID).Int("postings", 2*len(out.Lines)).Msg("traslado completado")
	s.publish(ctx, ports.NewEvent(entity.EventTransferCompleted, out.CompanyID, out.ID, s.now(), map[string]any{
		"from_location_id": out.FromLocationID,
		"to_location_id":   out.ToLocationID,
		"lines":            len(out.Lines),
	}))
	return out, nil
}

// DeleteDraft elimina un traslado en DRAFT o CANCELLED.
func (s *Service) DeleteDraft(ctx context.Context, transferID string) error {
	return s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		t, err := r.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
		}
		if t.Status != entity.TransferDraft && t.Status != entity.TransferCancelled {
			return fmt.Errorf("%w: solo se eliminan borradores o cancelados (%s)", domain.ErrConflict, t.Status)
		}
		return r.Transfers.Delete(ctx, transferID)
	})
}

// GetByID devuelve el traslado o domain.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, transferID string) (*entity.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
	}
	return t, nil
}

// FindDraftBetween borrador abierto del par o nil.
func (s *Service) FindDraftBetween(ctx context.Context, fromLocationID, toLocationID string) (*entity.Transfer, error) {
	return s.transfers.FindDraftBetween(ctx, fromLocationID, toLocationID)
}

// ListByLocation traslados donde la ubicación es origen o destino.
func (s *Service) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.Transfer, error) {
	limit, offset = page(limit, offset)
	return s.transfers.ListByLocation(ctx, locationID, limit, offset)
}

// ListByCompany traslados de la empresa, opcionalmente filtrados por estado.
func (s *Service) ListByCompany(ctx context.Context, companyID string, status *entity.TransferStatus, limit, offset int) ([]*entity.Transfer, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, *status)
	}
	limit, offset = page(limit, offset)
	return s.transfers.ListByCompany(ctx, companyID, status, limit, offset)
}

// ListOpenByCompany traslados con stock en tránsito.
func (s *Service) ListOpenByCompany(ctx context.Context, companyID string) ([]*entity.Transfer, error) {
	return s.transfers.ListOpenByCompany(ctx, companyID)
}

func (s *Service) transition(ctx context.Context, transferID string, next entity.TransferStatus) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := s.txRunner.Run(ctx, func(r ports.TxRepos) error {
		t, err := r.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
		}
		if err := t.TransitionTo(next, s.now()); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
		}
		out = t
		return r.Transfers.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("transfer_id", out.ID).Str("status", string(out.Status)).Msg("traslado actualizado")
	return out, nil
}

func (s *Service) loadDraft(ctx context.Context, r ports.TxRepos, transferID string) (*entity.Transfer, error) {
	t, err := r.Transfers.GetForUpdate(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
	}
	if t.Status != entity.TransferDraft {
		return nil, fmt.Errorf("%w: traslado %s en %s", domain.ErrConflict, t.ID, t.Status)
	}
	return t, nil
}

// resolvePair valida origen ≠ destino, existencia y misma empresa. Devuelve la empresa.
func (s *Service) resolvePair(ctx context.Context, fromLocationID, toLocationID string) (string, error) {
	if fromLocationID == "" || toLocationID == "" {
		return "", fmt.Errorf("%w: origen y destino son obligatorios", domain.ErrInvalidInput)
	}
	if fromLocationID == toLocationID {
		return "", domain.ErrSameLocation
	}
	from, err := s.location(ctx, fromLocationID)
	if err != nil {
		return "", err
	}
	to, err := s.location(ctx, toLocationID)
	if err != nil {
		return "", err
	}
	if from.CompanyID != to.CompanyID {
		return "", fmt.Errorf("%w: las ubicaciones pertenecen a empresas distintas", domain.ErrInvalidInput)
	}
	return from.CompanyID, nil
}

func (s *Service) location(ctx context.Context, id string) (*entity.Location, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, id)
	}
	return loc, nil
}

// normalizeLines valida cantidades y unidades; una línea sin unidad usa la unidad base.
// Devuelve también la unidad base de cada stockable para fusionar sin redondeo.
func (s *Service) normalizeLines(ctx context.Context, companyID string, lines []entity.TransferLine) ([]entity.TransferLine, map[entity.Stockable]entity.UnitOfMeasure, error) {
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: el traslado requiere al menos una línea", domain.ErrInvalidInput)
	}
	out := make([]entity.TransferLine, 0, len(lines))
	bases := make(map[entity.Stockable]entity.UnitOfMeasure, len(lines))
	for i, l := range lines {
		if !l.Stockable.Valid() {
			return nil, nil, fmt.Errorf("%w: línea %d sin stockable", domain.ErrInvalidInput, i)
		}
		if !l.Quantity.IsPositive() {
			return nil, nil, fmt.Errorf("%w: línea %d con cantidad %s", domain.ErrInvalidInput, i, l.Quantity)
		}
		info, err := s.stockables.GetInfo(ctx, l.Stockable)
		if err != nil {
			return nil, nil, err
		}
		if info == nil {
			return nil, nil, fmt.Errorf("%w: stockable %s", domain.ErrNotFound, l.Stockable)
		}
		if info.CompanyID != "" && info.CompanyID != companyID {
			return nil, nil, fmt.Errorf("%w: stockable %s de otra empresa", domain.ErrInvalidInput, l.Stockable)
		}
		if l.Unit.IsZero() {
			l.Unit = info.BaseUnit
		}
		if l.Unit.Category != info.Category() {
			return nil, nil, fmt.Errorf("%w: línea %d %s (%s) vs %s", domain.ErrIncompatibleUnit, i, l.Unit.Code, l.Unit.Category, info.Category())
		}
		bases[l.Stockable] = info.BaseUnit
		out = append(out, l)
	}
	return out, bases, nil
}

func (s *Service) draftedEvent(t *entity.Transfer) entity.Event {
	return ports.NewEvent(entity.EventTransferDrafted, t.CompanyID, t.ID, s.now(), map[string]any{
		"from_location_id": t.FromLocationID,
		"to_location_id":   t.ToLocationID,
		"lines":            len(t.Lines),
	})
}

func (s *Service) publish(ctx context.Context, events ...entity.Event) {
	if err := s.events.Publish(ctx, events...); err != nil {
		s.log.Warn().Err(err).Int("events", len(events)).Msg("no se pudieron publicar eventos")
	}
}

func pairKey(from, to string) string {
	return "transfer:" + from + "->" + to
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
