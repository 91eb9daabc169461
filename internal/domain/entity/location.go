package entity

import "time"

// Location representa una sede, cocina o bodega de la empresa donde se almacena inventario.
type Location struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
