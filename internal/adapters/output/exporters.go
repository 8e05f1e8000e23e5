// internal/adapters/output/exporters.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
)

// JSONExporter implementa el port de exportación en formato JSON.
type JSONExporter struct{}

var _ ports.WriterExporter = (*JSONExporter)(nil)

// NewJSONExporter crea el exporter JSON.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Name retorna el nombre del exporter.
func (e *JSONExporter) Name() string { return "json" }

// Export escribe el escaneo filtrado según las opciones: a un fichero
// con timestamp bajo OutputPath, o a stdout si OutputPath está vacío.
func (e *JSONExporter) Export(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult, opts ports.ExportOptions) error {
	report := filteredReport(scan, events, correlations, opts)
	if opts.OutputPath == "" {
		return e.encode(os.Stdout, report, opts.Pretty)
	}
	if _, err := WriteJSON(opts.OutputPath, report); err != nil {
		return err
	}
	return nil
}

// ExportToWriter escribe el escaneo filtrado al writer dado.
func (e *JSONExporter) ExportToWriter(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult, w io.Writer, opts ports.ExportOptions) error {
	return e.encode(w, filteredReport(scan, events, correlations, opts), opts.Pretty)
}

func (e *JSONExporter) encode(w io.Writer, report *Report, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// TableExporter implementa el port de exportación como tablas pterm.
type TableExporter struct{}

var _ ports.Exporter = (*TableExporter)(nil)

// NewTableExporter crea el exporter de tablas.
func NewTableExporter() *TableExporter {
	return &TableExporter{}
}

// Name retorna el nombre del exporter.
func (e *TableExporter) Name() string { return "table" }

// Export imprime el escaneo filtrado en terminal.
func (e *TableExporter) Export(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult, opts ports.ExportOptions) error {
	return RenderTable(filteredReport(scan, events, correlations, opts))
}

// ExporterFor retorna el exporter del formato pedido. Un formato
// desconocido cae a tabla, que siempre es legible.
func ExporterFor(format string) ports.Exporter {
	switch format {
	case "json":
		return NewJSONExporter()
	default:
		return NewTableExporter()
	}
}

// filteredReport aplica las opciones de exportación antes de proyectar.
func filteredReport(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult, opts ports.ExportOptions) *Report {
	filtered := make([]*domain.Event, 0, len(events))
	for _, ev := range events {
		if !opts.IncludeFalsePositives && ev.FalsePositive {
			continue
		}
		if len(opts.FilterByType) > 0 && !containsType(opts.FilterByType, ev.Type) {
			continue
		}
		filtered = append(filtered, ev)
	}

	if !opts.IncludeCorrelations {
		correlations = nil
	}

	return BuildReport(scan, filtered, correlations)
}

func containsType(types []string, eventType string) bool {
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}
