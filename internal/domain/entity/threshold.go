package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Threshold niveles mínimo y par de un stockable en una ubicación. Última escritura gana.
type Threshold struct {
	CompanyID  string
	LocationID string
	Stockable  Stockable
	MinOnHand  decimal.Decimal
	ParLevel   decimal.Decimal
	UpdatedAt  time.Time
}

// Validate exige 0 <= MinOnHand <= ParLevel.
func (t Threshold) Validate() error {
	if t.LocationID == "" || !t.Stockable.Valid() {
		return fmt.Errorf("ubicación y stockable son obligatorios")
	}
	if t.MinOnHand.IsNegative() {
		return fmt.Errorf("min_on_hand no puede ser negativo")
	}
	if t.ParLevel.LessThan(t.MinOnHand) {
		return fmt.Errorf("par_level (%s) menor que min_on_hand (%s)", t.ParLevel, t.MinOnHand)
	}
	return nil
}
