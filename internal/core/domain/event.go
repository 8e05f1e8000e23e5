// internal/core/domain/event.go
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RootEventHash es el hash centinela del evento raíz de un escaneo.
// Nunca es un digest real: los hijos directos del evento raíz lo
// referencian literalmente como SourceEventHash.
const RootEventHash = "ROOT"

// Event representa un dato descubierto durante un escaneo.
// Es la entidad principal de datos en Noctua.
//
// Su identidad es direccionada por contenido: el hash se calcula una
// sola vez en la construcción a partir de (Type, Data, Module,
// SourceEventHash), de modo que dos procesos que construyen el mismo
// evento obtienen el mismo hash. El enlace al evento padre es solo por
// hash; nunca se guarda un puntero vivo al padre.
type Event struct {
	// Type clasifica el evento dentro del vocabulario controlado
	Type string

	// Data es el payload descubierto (hostname, dirección IP, blob crudo...)
	Data string

	// Module es el nombre del módulo que produjo el evento
	Module string

	// SourceEventHash referencia al evento padre; RootEventHash para la raíz
	SourceEventHash string

	// Generated es el instante de creación del evento
	Generated time.Time

	// Confidence indica la confianza del descubrimiento [0-100]
	Confidence int

	// Visibility indica cuán visible es el dato para terceros [0-100]
	Visibility int

	// Risk indica el riesgo asociado al dato [0-100]
	Risk int

	// FalsePositive marca el evento como falso positivo en almacenamiento
	FalsePositive bool

	hash string
}

// NewEvent crea un evento hijo de source y calcula su hash.
// Todo evento que no sea raíz requiere un evento origen.
func NewEvent(eventType, data, module string, source *Event) (*Event, error) {
	if eventType == "" {
		return nil, ErrEmptyEventType
	}
	if data == "" {
		return nil, fmt.Errorf("%w: event type %s", ErrEmptyEventData, eventType)
	}
	if module == "" {
		return nil, fmt.Errorf("%w: event type %s", ErrEmptyEventModule, eventType)
	}
	if source == nil && eventType != EventTypeRoot {
		return nil, fmt.Errorf("%w: event type %s", ErrMissingSourceEvent, eventType)
	}

	sourceHash := RootEventHash
	if source != nil {
		sourceHash = source.Hash()
	}

	e := &Event{
		Type:            eventType,
		Data:            data,
		Module:          module,
		SourceEventHash: sourceHash,
		Generated:       time.Now(),
		Confidence:      100,
		Visibility:      100,
		Risk:            0,
	}
	e.hash = e.computeHash()
	return e, nil
}

// NewRootEvent crea el evento raíz de un escaneo. Su data es el valor
// semilla del objetivo y su hash es el centinela RootEventHash.
func NewRootEvent(data, module string) (*Event, error) {
	return NewEvent(EventTypeRoot, data, module, nil)
}

// RestoreEvent reconstruye un evento desde almacenamiento. El hash se
// recalcula a partir de los campos de identidad, por lo que un evento
// restaurado es indistinguible del original.
func RestoreEvent(eventType, data, module, sourceEventHash string, generated time.Time, confidence, visibility, risk int, falsePositive bool) *Event {
	e := &Event{
		Type:            eventType,
		Data:            data,
		Module:          module,
		SourceEventHash: sourceEventHash,
		Generated:       generated,
		Confidence:      confidence,
		Visibility:      visibility,
		Risk:            risk,
		FalsePositive:   falsePositive,
	}
	e.hash = e.computeHash()
	return e
}

// computeHash calcula el digest SHA-256 sobre la concatenación de los
// campos de identidad. El evento raíz conserva el hash centinela.
func (e *Event) computeHash() string {
	if e.Type == EventTypeRoot {
		return RootEventHash
	}
	sum := sha256.Sum256([]byte(e.Type + e.Data + e.Module + e.SourceEventHash))
	return hex.EncodeToString(sum[:])
}

// Hash retorna el identificador direccionado por contenido del evento.
func (e *Event) Hash() string {
	return e.hash
}

// Equal compara dos eventos por hash. Dos eventos con los mismos campos
// de identidad son el mismo evento aunque vivan en procesos distintos.
func (e *Event) Equal(other *Event) bool {
	if other == nil {
		return false
	}
	return e.hash == other.hash
}

// IsRoot indica si el evento es la raíz del escaneo.
func (e *Event) IsRoot() bool {
	return e.Type == EventTypeRoot
}

// SetConfidence fija la confianza del evento. Valores fuera de [0-100]
// se rechazan.
func (e *Event) SetConfidence(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: confidence %d", ErrValueOutOfRange, v)
	}
	e.Confidence = v
	return nil
}

// SetVisibility fija la visibilidad del evento.
func (e *Event) SetVisibility(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: visibility %d", ErrValueOutOfRange, v)
	}
	e.Visibility = v
	return nil
}

// SetRisk fija el riesgo del evento.
func (e *Event) SetRisk(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: risk %d", ErrValueOutOfRange, v)
	}
	e.Risk = v
	return nil
}

// String retorna una representación compacta para logging.
func (e *Event) String() string {
	return fmt.Sprintf("%s (%s, module=%s)", e.Type, truncate(e.Data, 64), e.Module)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
