package entity

// Company representa una organización/tenant dueña de ubicaciones, traslados y órdenes.
// El scheduler solo procesa empresas activas.
type Company struct {
	ID     string
	Name   string
	Status string // active, suspended, inactive
}

const CompanyStatusActive = "active"
