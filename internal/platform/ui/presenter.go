// internal/platform/ui/presenter.go
package ui

import (
	"time"
)

// UIMode define el modo de visualización
type UIMode string

const (
	UIModePretty UIMode = "pretty" // Paneles, spinner y colores (default)
	UIModePlain  UIMode = "plain"  // Líneas de log sin decoración
	UIModeSilent UIMode = "silent" // Sin salida visual
)

// Presenter define la interfaz para presentar el progreso de un escaneo
// en la terminal. El motor lo invoca desde varias goroutines, así que
// toda implementación debe ser segura para uso concurrente.
type Presenter interface {
	// Start inicia la presentación con información del escaneo
	Start(info ScanInfo)

	// ModuleStarted notifica que un módulo superó su setup y escucha eventos
	ModuleStarted(name string)

	// ModuleFailed notifica que un módulo entró en estado de error y no
	// participa más en el escaneo
	ModuleFailed(name, reason string)

	// EventDiscovered notifica un evento nuevo aceptado en el flujo.
	// total es el acumulado de eventos únicos del escaneo.
	EventDiscovered(eventType, module string, total int)

	// Info muestra un mensaje informativo
	Info(msg string)

	// Warning muestra una advertencia
	Warning(msg string)

	// Error muestra un error
	Error(msg string)

	// Finish finaliza la presentación con estadísticas finales
	Finish(stats ScanStats)

	// Close limpia recursos del presenter
	Close() error
}

// ScanInfo contiene información inicial del escaneo
type ScanInfo struct {
	ScanID     string
	ScanName   string
	Target     string
	TargetType string
	Modules    []string
	MaxThreads int
}

// ScanStats contiene estadísticas finales del escaneo
type ScanStats struct {
	Status           string
	TotalDuration    time.Duration
	TotalEvents      int
	EventsByType     map[string]int
	ModulesSucceeded int
	ModulesFailed    int
	Correlations     int

	// CorrelationsByRisk desglosa los hallazgos por severidad (claves
	// INFO/LOW/MEDIUM/HIGH). Vacío cuando no se corrió la correlación.
	CorrelationsByRisk map[string]int
}

// ForMode retorna el presenter correspondiente al modo de interfaz
// configurado. Un modo desconocido cae a plain, que siempre es seguro
// en terminales sin TTY.
func ForMode(mode string) Presenter {
	switch UIMode(mode) {
	case UIModePretty:
		return NewPTermPresenter()
	case UIModeSilent:
		return NewNoopPresenter()
	default:
		return NewPlainPresenter(LogFormatText)
	}
}
