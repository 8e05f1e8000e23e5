// internal/core/domain/arena.go
package domain

import (
	"strings"
	"sync"
)

// EventArena es la arena de eventos de un escaneo: un índice en memoria,
// de solo inserción, direccionado por hash. Es la única autoridad de
// deduplicación del escaneo, y el medio para recorrer ancestros sin
// punteros vivos entre eventos.
type EventArena struct {
	mu     sync.RWMutex
	events map[string]*Event
}

// NewEventArena crea una arena vacía.
func NewEventArena() *EventArena {
	return &EventArena{
		events: make(map[string]*Event),
	}
}

// AddIfAbsent inserta el evento si su hash no estaba presente. La
// comprobación y la inserción son atómicas bajo un único lock: de dos
// workers insertando el mismo hash, exactamente uno recibe true.
func (a *EventArena) AddIfAbsent(ev *Event) bool {
	if ev == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.events[ev.Hash()]; exists {
		return false
	}
	a.events[ev.Hash()] = ev
	return true
}

// Get retorna el evento con el hash dado, si está en la arena.
func (a *EventArena) Get(hash string) (*Event, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ev, ok := a.events[hash]
	return ev, ok
}

// Len retorna el número de eventos en la arena.
func (a *EventArena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.events)
}

// WalkAncestors recorre la cadena de ancestros de un evento siguiendo
// SourceEventHash hasta la raíz. El recorrido para cuando fn retorna
// false, al llegar a la raíz, o ante un enlace ausente en la arena.
func (a *EventArena) WalkAncestors(hash string, fn func(*Event) bool) {
	for {
		a.mu.RLock()
		ev, ok := a.events[hash]
		a.mu.RUnlock()
		if !ok {
			return
		}
		if !fn(ev) {
			return
		}
		if ev.IsRoot() || ev.SourceEventHash == RootEventHash {
			return
		}
		hash = ev.SourceEventHash
	}
}

// PathContains indica si la cadena de ancestros del evento contiene ya
// un evento del mismo tipo con el mismo dato (comparado sin distinguir
// mayúsculas). Se usa para suprimir la re-entrega de descubrimientos
// que repiten un punto del camino, cortando ciclos entre módulos.
func (a *EventArena) PathContains(ev *Event, eventType, data string) bool {
	if ev == nil {
		return false
	}
	found := false
	a.WalkAncestors(ev.SourceEventHash, func(ancestor *Event) bool {
		if ancestor.Type == eventType && strings.EqualFold(ancestor.Data, data) {
			found = true
			return false
		}
		return true
	})
	return found
}
