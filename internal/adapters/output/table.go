// internal/adapters/output/table.go
package output

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"

	"noctua/internal/core/domain"
)

// maxDataWidth limita el ancho de la columna de datos en terminal.
const maxDataWidth = 60

// RenderTable imprime el informe como tablas legibles en terminal.
func RenderTable(report *Report) error {
	pterm.DefaultSection.Println(fmt.Sprintf("Scan %s — %s (%s)",
		report.Scan.ID, report.Scan.Target, report.Scan.Status))

	summary := fmt.Sprintf("Name:   %s\n", report.Scan.Name)
	summary += fmt.Sprintf("Type:   %s\n", report.Scan.TargetType)
	summary += fmt.Sprintf("Events: %d\n", len(report.Events))
	summary += fmt.Sprintf("Findings: %d", len(report.Correlations))
	pterm.DefaultBox.WithTitle("Summary").WithTitleTopCenter().Println(summary)

	if len(report.Events) > 0 {
		pterm.DefaultSection.WithLevel(2).Println("Events")
		if err := pterm.DefaultTable.
			WithHasHeader().
			WithData(eventTableData(report.Events)).
			Render(); err != nil {
			return fmt.Errorf("failed to render events table: %w", err)
		}

		pterm.DefaultSection.WithLevel(2).Println("Events by Type")
		if err := pterm.DefaultTable.
			WithHasHeader().
			WithBoxed().
			WithData(summaryTableData(report.EventsByType)).
			Render(); err != nil {
			return fmt.Errorf("failed to render summary table: %w", err)
		}
	} else {
		pterm.Info.Println("No events discovered.")
	}

	if len(report.Correlations) > 0 {
		pterm.DefaultSection.WithLevel(2).Println("Correlations")
		if err := pterm.DefaultTable.
			WithHasHeader().
			WithData(correlationTableData(report.Correlations)).
			Render(); err != nil {
			return fmt.Errorf("failed to render correlations table: %w", err)
		}
	}

	pterm.Println()
	return nil
}

// eventTableData construye las filas de la tabla de eventos.
func eventTableData(events []EventRecord) pterm.TableData {
	data := pterm.TableData{
		{"TYPE", "DATA", "MODULE", "CONF", "FP"},
	}
	for _, ev := range events {
		fp := ""
		if ev.FalsePositive {
			fp = "yes"
		}
		data = append(data, []string{
			ev.Type,
			truncate(ev.Data, maxDataWidth),
			ev.Module,
			domain.ConfidenceLabel(ev.Confidence),
			fp,
		})
	}
	return data
}

// summaryTableData construye las filas del conteo por tipo, de mayor a
// menor frecuencia y alfabético en caso de empate.
func summaryTableData(counts map[string]int) pterm.TableData {
	type typeCount struct {
		eventType string
		count     int
	}
	sorted := make([]typeCount, 0, len(counts))
	for eventType, n := range counts {
		sorted = append(sorted, typeCount{eventType, n})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].eventType < sorted[j].eventType
	})

	data := pterm.TableData{
		{"TYPE", "COUNT"},
	}
	for _, tc := range sorted {
		data = append(data, []string{tc.eventType, fmt.Sprintf("%d", tc.count)})
	}
	return data
}

// correlationTableData construye las filas de la tabla de hallazgos.
func correlationTableData(results []CorrelationRecord) pterm.TableData {
	data := pterm.TableData{
		{"RISK", "RULE", "TITLE", "EVENTS"},
	}
	for _, res := range results {
		data = append(data, []string{
			res.Risk,
			res.RuleID,
			truncate(res.Title, maxDataWidth),
			fmt.Sprintf("%d", len(res.Events)),
		})
	}
	return data
}

// RenderCorrelations imprime solo la tabla de hallazgos de correlación.
func RenderCorrelations(results []CorrelationRecord) error {
	if len(results) == 0 {
		pterm.Info.Println("No correlation results.")
		return nil
	}
	if err := pterm.DefaultTable.
		WithHasHeader().
		WithData(correlationTableData(results)).
		Render(); err != nil {
		return fmt.Errorf("failed to render correlations table: %w", err)
	}
	return nil
}

// RenderScanList imprime el listado de escaneos almacenados.
func RenderScanList(scans []*domain.Scan) error {
	if len(scans) == 0 {
		pterm.Info.Println("No scans stored.")
		return nil
	}

	data := pterm.TableData{
		{"ID", "NAME", "TARGET", "STATUS", "CREATED"},
	}
	for _, s := range scans {
		data = append(data, []string{
			s.ID,
			truncate(s.Name, 30),
			truncate(s.Target, 30),
			s.Status.String(),
			s.Created.Format("2006-01-02 15:04"),
		})
	}

	if err := pterm.DefaultTable.
		WithHasHeader().
		WithData(data).
		Render(); err != nil {
		return fmt.Errorf("failed to render scan list: %w", err)
	}
	return nil
}

// truncate corta un valor largo para que la tabla no desborde la
// terminal. Los datos completos siempre están en el export JSON.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
