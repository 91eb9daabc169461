package entity

import (
	"fmt"
	"strings"
)

// StockableKind tipo de bien inventariable.
type StockableKind string

const (
	StockableItem      StockableKind = "ITEM"       // insumo de inventario
	StockableSubRecipe StockableKind = "SUB_RECIPE" // sub-receta producida en la ubicación
)

// Stockable identifica un insumo o una sub-receta, nunca ambos.
// El valor cero no es válido; se construye con ItemStockable o SubRecipeStockable.
// Es comparable y puede usarse como clave de mapa.
type Stockable struct {
	kind StockableKind
	id   string
}

// ItemStockable construye un stockable de tipo insumo.
func ItemStockable(itemID string) Stockable {
	return Stockable{kind: StockableItem, id: itemID}
}

// SubRecipeStockable construye un stockable de tipo sub-receta.
func SubRecipeStockable(subRecipeID string) Stockable {
	return Stockable{kind: StockableSubRecipe, id: subRecipeID}
}

// NewStockable acepta la elección exclusiva "insumo o sub-receta": exactamente uno debe venir informado.
func NewStockable(itemID, subRecipeID *string) (Stockable, error) {
	hasItem := itemID != nil && *itemID != ""
	hasSub := subRecipeID != nil && *subRecipeID != ""
	switch {
	case hasItem && !hasSub:
		return ItemStockable(*itemID), nil
	case hasSub && !hasItem:
		return SubRecipeStockable(*subRecipeID), nil
	}
	return Stockable{}, fmt.Errorf("se requiere exactamente uno de item_id o sub_recipe_id")
}

// ParseStockable reconstruye el stockable desde su representación persistida (kind, id).
func ParseStockable(kind, id string) (Stockable, error) {
	s := Stockable{kind: StockableKind(kind), id: id}
	if !s.Valid() {
		return Stockable{}, fmt.Errorf("stockable inválido: %s:%s", kind, id)
	}
	return s, nil
}

func (s Stockable) Kind() StockableKind { return s.kind }
func (s Stockable) ID() string          { return s.id }

// Valid indica si exactamente un brazo está poblado.
func (s Stockable) Valid() bool {
	return (s.kind == StockableItem || s.kind == StockableSubRecipe) && strings.TrimSpace(s.id) != ""
}

// ItemID devuelve el id del insumo o nil si es sub-receta.
func (s Stockable) ItemID() *string {
	if s.kind != StockableItem {
		return nil
	}
	id := s.id
	return &id
}

// SubRecipeID devuelve el id de la sub-receta o nil si es insumo.
func (s Stockable) SubRecipeID() *string {
	if s.kind != StockableSubRecipe {
		return nil
	}
	id := s.id
	return &id
}

// Key clave estable usada para ordenar y agrupar.
func (s Stockable) Key() string {
	return string(s.kind) + ":" + s.id
}

func (s Stockable) String() string { return s.Key() }
