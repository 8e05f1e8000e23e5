// internal/core/domain/errors.go
package domain

import "errors"

// Errores de dominio comunes.
var (
	// Event errors
	ErrEmptyEventType     = errors.New("event type cannot be empty")
	ErrEmptyEventData     = errors.New("event data cannot be empty")
	ErrEmptyEventModule   = errors.New("event module cannot be empty")
	ErrMissingSourceEvent = errors.New("non-root event requires a source event")
	ErrValueOutOfRange    = errors.New("value must be between 0 and 100")

	// Target errors
	ErrEmptyTargetValue  = errors.New("target value cannot be empty")
	ErrInvalidTargetType = errors.New("invalid target type")
	ErrUnknownTargetType = errors.New("could not determine target type")

	// Scan errors
	ErrScanNotFound      = errors.New("scan not found")
	ErrInvalidScanStatus = errors.New("invalid scan status")
	ErrInvalidTransition = errors.New("illegal scan status transition")
	ErrScanStillRunning  = errors.New("scan has not reached a terminal status")

	// Module errors
	ErrModuleNotFound  = errors.New("module not found")
	ErrNoModulesChosen = errors.New("no modules selected for scan")
	ErrModuleSetup     = errors.New("module setup failed")

	// Correlation errors
	ErrInvalidRisk        = errors.New("invalid risk level")
	ErrInvalidRule        = errors.New("invalid correlation rule")
	ErrUnknownCollection  = errors.New("condition references unknown collection")
	ErrInvalidMatchMethod = errors.New("invalid match method")
	ErrInvalidMatchField  = errors.New("invalid match field")
)
