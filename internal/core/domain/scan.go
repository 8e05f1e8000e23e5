// internal/core/domain/scan.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanStatus define el estado de un escaneo en su máquina de estados.
type ScanStatus string

const (
	// ScanStatusCreated instancia persistida, ejecución no arrancada
	ScanStatusCreated ScanStatus = "CREATED"

	// ScanStatusStarting módulos construidos y en setup
	ScanStatusStarting ScanStatus = "STARTING"

	// ScanStatusRunning evento raíz inyectado, flujo de eventos activo
	ScanStatusRunning ScanStatus = "RUNNING"

	// ScanStatusAbortRequested petición cooperativa de parada pendiente
	ScanStatusAbortRequested ScanStatus = "ABORT-REQUESTED"

	// ScanStatusAborted parada cooperativa completada
	ScanStatusAborted ScanStatus = "ABORTED"

	// ScanStatusFinished flujo drenado sin fallo fatal
	ScanStatusFinished ScanStatus = "FINISHED"

	// ScanStatusFailed fallo de setup o de persistencia requerida
	ScanStatusFailed ScanStatus = "FAILED"
)

// IsValid verifica si el estado pertenece a la máquina.
func (s ScanStatus) IsValid() bool {
	switch s {
	case ScanStatusCreated, ScanStatusStarting, ScanStatusRunning,
		ScanStatusAbortRequested, ScanStatusAborted,
		ScanStatusFinished, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal indica si el estado es final: ningún escaneo sale de él.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanStatusAborted, ScanStatusFinished, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// String retorna la representación string del estado.
func (s ScanStatus) String() string {
	return string(s)
}

// scanTransitions enumera las transiciones legales de la máquina.
var scanTransitions = map[ScanStatus][]ScanStatus{
	ScanStatusCreated:        {ScanStatusStarting, ScanStatusAbortRequested, ScanStatusFailed},
	ScanStatusStarting:       {ScanStatusRunning, ScanStatusAbortRequested, ScanStatusAborted, ScanStatusFailed},
	ScanStatusRunning:        {ScanStatusFinished, ScanStatusAbortRequested, ScanStatusAborted, ScanStatusFailed},
	ScanStatusAbortRequested: {ScanStatusAborted, ScanStatusFailed},
}

// CanTransitionTo indica si la transición s → next es legal. Un escaneo
// con petición de aborto nunca termina FINISHED.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	for _, allowed := range scanTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Scan es el registro persistido de una instancia de escaneo.
type Scan struct {
	// ID es el identificador único de la instancia
	ID string

	// Name es el nombre legible dado por el usuario
	Name string

	// Target es el valor semilla del escaneo
	Target string

	// TargetType es el tipo detectado o declarado de la semilla
	TargetType TargetType

	// Created instante de creación del registro
	Created time.Time

	// Started instante de entrada en RUNNING (cero si nunca arrancó)
	Started time.Time

	// Ended instante de llegada a un estado terminal (cero si sigue vivo)
	Ended time.Time

	// Status estado actual en la máquina
	Status ScanStatus
}

// NewScanID genera un identificador único de instancia de escaneo.
func NewScanID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
