// internal/core/ports/storage.go
package ports

import (
	"context"
	"time"

	"noctua/internal/core/domain"
)

// Storage es el port de persistencia del motor. Todas las escrituras del
// flujo de eventos pasan por aquí; el orquestador exige que StoreEvent de
// un padre preceda a la visibilidad de sus hijos.
type Storage interface {
	// CreateScanInstance registra un escaneo nuevo
	CreateScanInstance(ctx context.Context, scan *domain.Scan) error

	// ScanInstance recupera un escaneo por su ID
	ScanInstance(ctx context.Context, scanID string) (*domain.Scan, error)

	// ListScans lista los escaneos almacenados, el más reciente primero
	ListScans(ctx context.Context) ([]*domain.Scan, error)

	// SetScanStatus actualiza el estado de un escaneo. La implementación
	// mantiene los timestamps: arranque al pasar a RUNNING y cierre al
	// alcanzar un estado terminal.
	SetScanStatus(ctx context.Context, scanID string, status domain.ScanStatus) error

	// ReadScanStatus lee el estado actual persistido (polling de abort)
	ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error)

	// StoreEvent persiste un evento. Idempotente sobre el hash: almacenar
	// dos veces el mismo evento no duplica filas ni retorna error.
	StoreEvent(ctx context.Context, scanID string, ev *domain.Event) error

	// QueryEvents recupera eventos de un escaneo en orden de generación
	QueryEvents(ctx context.Context, scanID string, q EventQuery) ([]*domain.Event, error)

	// SummarizeEvents cuenta los eventos de un escaneo por tipo
	SummarizeEvents(ctx context.Context, scanID string) (map[string]int, error)

	// SetFalsePositive marca o desmarca un evento como falso positivo
	SetFalsePositive(ctx context.Context, scanID, eventHash string, fp bool) error

	// CreateCorrelationResult persiste un resultado de correlación con
	// sus eventos contribuyentes
	CreateCorrelationResult(ctx context.Context, scanID string, result *domain.CorrelationResult) error

	// Correlations recupera los resultados de correlación de un escaneo
	Correlations(ctx context.Context, scanID string) ([]*domain.CorrelationResult, error)

	// SummarizeCorrelations cuenta los resultados de correlación por riesgo
	SummarizeCorrelations(ctx context.Context, scanID string) (map[domain.Risk]int, error)

	// LogScanEvent añade una línea al log persistido del escaneo.
	// Escritura best-effort: un fallo aquí nunca tumba el escaneo.
	LogScanEvent(ctx context.Context, scanID, component, level, message string) error

	// ScanLogs recupera el log persistido de un escaneo en orden de
	// escritura
	ScanLogs(ctx context.Context, scanID string) ([]ScanLogEntry, error)

	// Reconnect intenta restablecer la conexión tras un fallo
	Reconnect() error

	// Close cierra la conexión con el almacenamiento
	Close() error
}

// ScanLogEntry es una línea del log persistido de un escaneo.
type ScanLogEntry struct {
	Generated time.Time
	Component string
	Level     string
	Message   string
}

// EventQuery define filtros para la consulta de eventos.
type EventQuery struct {
	// Type filtra por tipo de evento (vacío = todos)
	Type string

	// SourceModule filtra por módulo generador (vacío = todos)
	SourceModule string

	// FilterFalsePositives excluye eventos marcados como falso positivo
	FilterFalsePositives bool

	// Limit acota el número de resultados (0 = sin límite)
	Limit int
}
