// internal/adapters/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"noctua/internal/core/domain"
)

// Report es el volcado exportable de un escaneo: su registro, los
// eventos persistidos y los hallazgos de correlación. Los tipos del
// dominio no llevan etiquetas JSON, así que el adaptador define su
// propia forma serializable.
type Report struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	Scan         ScanRecord          `json:"scan"`
	EventsByType map[string]int      `json:"events_by_type"`
	Events       []EventRecord       `json:"events"`
	Correlations []CorrelationRecord `json:"correlations"`
}

// ScanRecord es la proyección JSON del registro de escaneo.
type ScanRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Target     string    `json:"target"`
	TargetType string    `json:"target_type"`
	Status     string    `json:"status"`
	Created    time.Time `json:"created"`
	Started    time.Time `json:"started"`
	Ended      time.Time `json:"ended"`
}

// EventRecord es la proyección JSON de un evento persistido.
type EventRecord struct {
	Hash            string    `json:"hash"`
	Type            string    `json:"type"`
	Data            string    `json:"data"`
	Module          string    `json:"module"`
	SourceEventHash string    `json:"source_event_hash"`
	Generated       time.Time `json:"generated"`
	Confidence      int       `json:"confidence"`
	Visibility      int       `json:"visibility"`
	Risk            int       `json:"risk"`
	FalsePositive   bool      `json:"false_positive,omitempty"`
}

// CorrelationRecord es la proyección JSON de un hallazgo de correlación.
type CorrelationRecord struct {
	ID       string   `json:"id"`
	RuleID   string   `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Risk     string   `json:"risk"`
	Title    string   `json:"title"`
	Events   []string `json:"events"`
}

// BuildReport proyecta los datos del dominio a la forma exportable.
func BuildReport(scan *domain.Scan, events []*domain.Event, correlations []*domain.CorrelationResult) *Report {
	report := &Report{
		GeneratedAt: time.Now(),
		Scan: ScanRecord{
			ID:         scan.ID,
			Name:       scan.Name,
			Target:     scan.Target,
			TargetType: scan.TargetType.String(),
			Status:     scan.Status.String(),
			Created:    scan.Created,
			Started:    scan.Started,
			Ended:      scan.Ended,
		},
		EventsByType: make(map[string]int),
		Events:       make([]EventRecord, 0, len(events)),
		Correlations: make([]CorrelationRecord, 0, len(correlations)),
	}

	for _, ev := range events {
		report.EventsByType[ev.Type]++
		report.Events = append(report.Events, EventRecord{
			Hash:            ev.Hash(),
			Type:            ev.Type,
			Data:            ev.Data,
			Module:          ev.Module,
			SourceEventHash: ev.SourceEventHash,
			Generated:       ev.Generated,
			Confidence:      ev.Confidence,
			Visibility:      ev.Visibility,
			Risk:            ev.Risk,
			FalsePositive:   ev.FalsePositive,
		})
	}

	for _, res := range correlations {
		report.Correlations = append(report.Correlations, CorrelationRecord{
			ID:       res.ID,
			RuleID:   res.RuleID,
			RuleName: res.RuleName,
			Risk:     res.RuleRisk.String(),
			Title:    res.Title,
			Events:   res.Events,
		})
	}

	return report
}

// sanitizeTargetName convierte un target en un nombre de fichero
// válido. Ejemplo: "example.com" -> "example_com", "192.0.2.0/24" ->
// "192_0_2_0_24".
func sanitizeTargetName(target string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, target)
	return sanitized
}

// WriteJSON exporta el informe a un fichero JSON con timestamp bajo un
// subdirectorio por target. Retorna la ruta escrita.
func WriteJSON(dir string, report *Report) (string, error) {
	if dir == "" {
		dir = "."
	}

	targetDir := sanitizeTargetName(report.Scan.Target)
	fullDir := filepath.Join(dir, targetDir)

	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("noctua_%s_%s.json", targetDir, timestamp)
	path := filepath.Join(fullDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}

	return path, nil
}

// WriteJSONStdout exporta el informe a stdout en formato JSON.
func WriteJSONStdout(report *Report, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}
