// internal/core/ports/module.go
package ports

import (
	"context"
	"sync/atomic"

	"noctua/internal/core/domain"
	"noctua/internal/platform/logx"
)

// Module es el port primario para todos los módulos de descubrimiento.
// Un módulo declara qué tipos de evento consume y produce, recibe eventos
// del orquestador y emite sus hallazgos a través del sink del entorno.
type Module interface {
	// Name retorna el nombre único del módulo (ej: "dnsresolve", "crtsh")
	Name() string

	// WatchedEvents retorna los tipos de evento que el módulo consume,
	// o ["*"] para recibir todos
	WatchedEvents() []string

	// ProducedEvents retorna los tipos de evento que el módulo puede producir
	ProducedEvents() []string

	// Setup prepara el módulo para un escaneo concreto
	Setup(ctx context.Context, env *ModuleEnv, opts map[string]string) error

	// HandleEvent procesa un evento entregado por el orquestador.
	// No debe asumirse retorno rápido: puede bloquear en I/O.
	HandleEvent(ctx context.Context, ev *domain.Event) error

	// RegisterListener añade un módulo interesado en la salida de éste
	RegisterListener(m Module)

	// Listeners retorna los módulos registrados como oyentes
	Listeners() []Module

	// ErrorState indica si el módulo quedó marcado como fallido.
	// Una vez activo, el módulo se omite durante el resto del escaneo.
	ErrorState() bool

	// TripErrorState marca el módulo como fallido de forma permanente
	TripErrorState()

	// Close libera recursos del módulo (conexiones, goroutines, etc.)
	Close() error
}

// EventSink recibe los eventos que los módulos descubren. El orquestador
// lo implementa: deduplica, persiste y reparte a los oyentes.
// storeOnly indica que el evento debe persistirse pero no repartirse.
type EventSink interface {
	Accept(ev *domain.Event, storeOnly bool)
}

// StatusReader expone la lectura en vivo del estado persistido de un
// escaneo. Es el punto de consulta del stop cooperativo.
type StatusReader interface {
	ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error)
}

// StopFlag es el flag de parada cooperativa compartido por todos los
// módulos de un escaneo. El orquestador lo activa una única vez; una
// vez activo no se desactiva.
type StopFlag struct {
	flag atomic.Bool
}

// Set activa el flag de parada.
func (s *StopFlag) Set() {
	s.flag.Store(true)
}

// IsSet indica si la parada fue solicitada.
func (s *StopFlag) IsSet() bool {
	return s.flag.Load()
}

// ModuleEnv agrupa los servicios compartidos que cada módulo recibe en Setup.
type ModuleEnv struct {
	// ScanID identifica el escaneo en curso
	ScanID string

	// Target es el objetivo del escaneo, con sus aliases
	Target *domain.Target

	// Arena es el registro en memoria de eventos del escaneo
	Arena *domain.EventArena

	// Sink recibe los eventos descubiertos
	Sink EventSink

	// Status permite consultar el estado persistido (stop cooperativo)
	Status StatusReader

	// Stop es el flag de parada del escaneo, compartido entre módulos
	Stop *StopFlag

	// Logger con scope del escaneo
	Logger logx.Logger
}

// UseCase clasifica módulos por caso de uso.
type UseCase string

const (
	// UseCasePassive agrupa módulos que nunca tocan la infraestructura del objetivo
	UseCasePassive UseCase = "passive"

	// UseCaseFootprint agrupa módulos que mapean la presencia del objetivo
	UseCaseFootprint UseCase = "footprint"

	// UseCaseInvestigate agrupa módulos orientados a indicios de exposición
	UseCaseInvestigate UseCase = "investigate"
)

// ModuleMeta contiene metadatos sobre un módulo.
type ModuleMeta struct {
	Name     string
	Summary  string
	UseCases []UseCase
	Flags    []string

	// Declaración de dependencias para el cableado del orquestador
	Watches  []string
	Produces []string
}

// HasUseCase indica si el módulo declara el caso de uso dado.
func (m ModuleMeta) HasUseCase(uc UseCase) bool {
	for _, candidate := range m.UseCases {
		if candidate == uc {
			return true
		}
	}
	return false
}

// ProducesType indica si el módulo declara producir el tipo de evento dado.
func (m ModuleMeta) ProducesType(eventType string) bool {
	for _, produced := range m.Produces {
		if produced == eventType {
			return true
		}
	}
	return false
}
