package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Los servicios envuelven estos sentinels con %w; los llamadores comparan con errors.Is.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrIncompatibleUnit la unidad de una línea no pertenece a la categoría del stockable.
	ErrIncompatibleUnit = fmt.Errorf("%w: unidad de medida incompatible", ErrInvalidInput)
	// ErrSameLocation origen y destino de un traslado son la misma ubicación.
	ErrSameLocation = fmt.Errorf("%w: origen y destino deben ser distintos", ErrInvalidInput)

	// ErrDraftExists ya hay un borrador abierto para el par (origen, destino) o (ubicación, proveedor).
	ErrDraftExists = fmt.Errorf("%w: ya existe un borrador abierto", ErrConflict)
	// ErrInvalidTransition la transición de estado no está en la tabla de transiciones.
	ErrInvalidTransition = fmt.Errorf("%w: transición de estado no permitida", ErrConflict)

	// ErrPostingFailed fallo al escribir una línea del libro; la operación completa se revierte.
	ErrPostingFailed = errors.New("fallo al contabilizar en el libro de inventario")
	// ErrLockTimeout no se obtuvo la sección crítica a tiempo; el scheduler reintenta en el siguiente tick.
	ErrLockTimeout = errors.New("no se pudo obtener el bloqueo a tiempo")
)
