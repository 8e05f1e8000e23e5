// internal/core/ports/exporter.go
package ports

import (
	"io"

	"noctua/internal/core/domain"
)

// Exporter es el port para exportar los resultados de un escaneo.
type Exporter interface {
	// Name retorna el nombre del exporter (ej: "json", "table")
	Name() string

	// Export exporta el escaneo con sus eventos y correlaciones
	Export(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult, opts ExportOptions) error
}

// WriterExporter permite exportar a cualquier io.Writer.
type WriterExporter interface {
	Exporter

	// ExportToWriter exporta el resultado a un Writer personalizado
	ExportToWriter(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult, writer io.Writer, opts ExportOptions) error
}

// ExportOptions configura las opciones de exportación.
type ExportOptions struct {
	// OutputPath ruta donde guardar el resultado (vacío = stdout)
	OutputPath string

	// Pretty indica si el output debe formatearse para lectura humana
	Pretty bool

	// IncludeFalsePositives incluye eventos marcados como falso positivo
	IncludeFalsePositives bool

	// FilterByType filtra eventos por tipo (vacío = todos)
	FilterByType []string

	// IncludeCorrelations añade los resultados de correlación al export
	IncludeCorrelations bool
}

// DefaultExportOptions retorna opciones por defecto.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		OutputPath:            "",
		Pretty:                true,
		IncludeFalsePositives: false,
		FilterByType:          nil,
		IncludeCorrelations:   true,
	}
}
