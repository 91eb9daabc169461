// Package memory implementa todos los puertos del motor en memoria.
// Se usa en tests y en modo demo; las transacciones son copy-on-write bajo un único escritor,
// de modo que un lector nunca ve una contabilización a medias.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

var _ ports.TxRunner = (*Store)(nil)

// txState datos transaccionales. Las entidades guardadas no se mutan: se reemplazan por copias.
type txState struct {
	ledger    []*entity.StockTransaction
	transfers map[string]*entity.Transfer
	orders    map[string]*entity.Order
}

func newTxState() *txState {
	return &txState{
		transfers: make(map[string]*entity.Transfer),
		orders:    make(map[string]*entity.Order),
	}
}

func (st *txState) clone() *txState {
	c := &txState{
		ledger:    append([]*entity.StockTransaction(nil), st.ledger...),
		transfers: make(map[string]*entity.Transfer, len(st.transfers)),
		orders:    make(map[string]*entity.Order, len(st.orders)),
	}
	for k, v := range st.transfers {
		c.transfers[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	return c
}

type thresholdKey struct {
	locationID string
	stockable  entity.Stockable
}

// Store almacén en memoria. Los datos maestros usan su propio mutex para poder consultarse
// dentro de una transacción sin bloqueo mutuo.
type Store struct {
	mu    sync.RWMutex
	state *txState

	masterMu   sync.RWMutex
	companies  map[string]*entity.Company
	locations  map[string]*entity.Location
	stockables map[entity.Stockable]*entity.StockableInfo
	options    map[string]*entity.PurchaseOption
	thresholds map[thresholdKey]*entity.Threshold

	hookMu     sync.Mutex
	ledgerHook func(*entity.StockTransaction) error
}

// New construye un almacén vacío.
func New() *Store {
	return &Store{
		state:      newTxState(),
		companies:  make(map[string]*entity.Company),
		locations:  make(map[string]*entity.Location),
		stockables: make(map[entity.Stockable]*entity.StockableInfo),
		options:    make(map[string]*entity.PurchaseOption),
		thresholds: make(map[thresholdKey]*entity.Threshold),
	}
}

// Run ejecuta fn con repositorios atados a una copia del estado; si fn devuelve nil la copia
// reemplaza al estado confirmado, si no se descarta (rollback).
func (s *Store) Run(ctx context.Context, fn func(r ports.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	repos := ports.TxRepos{
		Ledger:    &LedgerRepo{store: s, st: next},
		Transfers: &TransferRepo{store: s, st: next},
		Orders:    &OrderRepo{store: s, st: next},
	}
	if err := fn(repos); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) read(st *txState, fn func(*txState) error) error {
	if st != nil {
		return fn(st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) write(st *txState, fn func(*txState) error) error {
	if st != nil {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// SetLedgerWriteHook instala una función que se ejecuta antes de cada inserción en el libro;
// si devuelve error la inserción falla. Permite simular fallos de contabilización.
func (s *Store) SetLedgerWriteHook(hook func(*entity.StockTransaction) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.ledgerHook = hook
}

func (s *Store) runLedgerHook(tx *entity.StockTransaction) error {
	s.hookMu.Lock()
	hook := s.ledgerHook
	s.hookMu.Unlock()
	if hook == nil {
		return nil
	}
	return hook(tx)
}

// Ledger repositorio del libro fuera de transacción (autocommit).
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{store: s} }

// Transfers repositorio de traslados fuera de transacción.
func (s *Store) Transfers() *TransferRepo { return &TransferRepo{store: s} }

// Orders repositorio de órdenes fuera de transacción.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{store: s} }

// Locations, Companies, Stockables, PurchaseOptions y Thresholds: datos maestros.
func (s *Store) Locations() *LocationRepo             { return &LocationRepo{store: s} }
func (s *Store) Companies() *CompanyRepo              { return &CompanyRepo{store: s} }
func (s *Store) Stockables() *StockableRepo           { return &StockableRepo{store: s} }
func (s *Store) PurchaseOptions() *PurchaseOptionRepo { return &PurchaseOptionRepo{store: s} }
func (s *Store) Thresholds() *ThresholdRepo           { return &ThresholdRepo{store: s} }

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
