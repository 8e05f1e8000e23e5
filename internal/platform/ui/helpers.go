// internal/platform/ui/helpers.go
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// formatDuration formatea una duración de manera legible
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
}

// sortedTypeCounts ordena un conteo por tipo de evento, de mayor a
// menor frecuencia y alfabético en caso de empate, para que las tablas
// de resumen sean estables entre ejecuciones.
func sortedTypeCounts(counts map[string]int) []typeCount {
	out := make([]typeCount, 0, len(counts))
	for eventType, n := range counts {
		out = append(out, typeCount{Type: eventType, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

type typeCount struct {
	Type  string
	Count int
}

// riskBreakdown aplana el desglose por severidad en una cadena corta,
// de mayor a menor riesgo. Ejemplo: "1 HIGH, 2 MEDIUM".
func riskBreakdown(byRisk map[string]int) string {
	parts := make([]string, 0, len(byRisk))
	for _, risk := range []string{"HIGH", "MEDIUM", "LOW", "INFO"} {
		if n := byRisk[risk]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, risk))
		}
	}
	return strings.Join(parts, ", ")
}
