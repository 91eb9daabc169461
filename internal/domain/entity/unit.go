package entity

import "github.com/shopspring/decimal"

// UnitCategory categoría de la unidad de medida; solo se convierten unidades de la misma categoría.
type UnitCategory string

const (
	UnitCategoryWeight UnitCategory = "WEIGHT"
	UnitCategoryVolume UnitCategory = "VOLUME"
	UnitCategoryCount  UnitCategory = "COUNT"
)

// UnitOfMeasure unidad con su factor de conversión a la unidad base del stockable.
type UnitOfMeasure struct {
	Code     string          // kg, g, l, ml, und, caja12...
	Category UnitCategory
	ToBase   decimal.Decimal // cantidad de unidades base por unidad (kg→g = 1000)
}

// IsZero indica que la unidad no fue informada.
func (u UnitOfMeasure) IsZero() bool {
	return u.Code == "" && u.Category == ""
}

// Equal misma unidad: código, categoría y factor.
func (u UnitOfMeasure) Equal(other UnitOfMeasure) bool {
	return u.Code == other.Code && u.Category == other.Category && u.ToBase.Equal(other.ToBase)
}

// ToBaseQuantity convierte una cantidad expresada en esta unidad a la unidad base.
func (u UnitOfMeasure) ToBaseQuantity(qty decimal.Decimal) decimal.Decimal {
	if u.ToBase.IsZero() {
		return qty
	}
	return qty.Mul(u.ToBase)
}

// FromBaseQuantity convierte una cantidad en unidad base a esta unidad, redondeada a 12 decimales.
func (u UnitOfMeasure) FromBaseQuantity(qty decimal.Decimal) decimal.Decimal {
	if u.ToBase.IsZero() {
		return qty
	}
	return qty.DivRound(u.ToBase, 12)
}

// exactScale decimales con que se intenta la división antes de comprobar que sea exacta.
const exactScale = 24

// ExactFromBase convierte qty (unidad base) a esta unidad solo si el cociente es exacto.
func (u UnitOfMeasure) ExactFromBase(qty decimal.Decimal) (decimal.Decimal, bool) {
	if u.ToBase.IsZero() {
		return qty, true
	}
	q := qty.DivRound(u.ToBase, exactScale)
	return q, q.Mul(u.ToBase).Equal(qty)
}

// StockableInfo datos maestros de un insumo o sub-receta, provistos por el servicio de catálogo.
type StockableInfo struct {
	Stockable Stockable
	CompanyID string
	Name      string
	BaseUnit  UnitOfMeasure
}

// Category categoría de unidad del stockable (la de su unidad base).
func (i StockableInfo) Category() UnitCategory {
	return i.BaseUnit.Category
}
