// internal/platform/ui/plain_presenter.go
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogFormat define el formato de salida para el modo plain
type LogFormat string

const (
	LogFormatText LogFormat = "text" // Formato logfmt (default)
	LogFormatJSON LogFormat = "json" // Formato JSON estructurado
)

// PlainPresenter implementa Presenter emitiendo líneas de log sin
// decoración visual, aptas para pipes, CI y terminales sin TTY.
type PlainPresenter struct {
	format    LogFormat
	mu        sync.Mutex
	startTime time.Time
	out       io.Writer
}

// NewPlainPresenter crea un nuevo PlainPresenter
func NewPlainPresenter(format LogFormat) *PlainPresenter {
	return &PlainPresenter{
		format:    format,
		startTime: time.Now(),
		out:       os.Stdout,
	}
}

// log escribe un log en el formato configurado
func (r *PlainPresenter) log(level, message string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timestamp := time.Now().UTC().Format(time.RFC3339)

	if r.format == LogFormatJSON {
		r.logJSON(timestamp, level, message, fields)
	} else {
		r.logText(timestamp, level, message, fields)
	}
}

// logText escribe en formato logfmt: timestamp LEVEL message key=value key2=value2
func (r *PlainPresenter) logText(timestamp, level, message string, fields map[string]interface{}) {
	var parts []string
	parts = append(parts, timestamp)
	parts = append(parts, fmt.Sprintf("%-5s", level))
	parts = append(parts, message)

	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.formatValue(v)))
	}

	fmt.Fprintln(r.out, strings.Join(parts, " "))
}

// logJSON escribe en formato JSON estructurado
func (r *PlainPresenter) logJSON(timestamp, level, message string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"message":   message,
	}

	if len(fields) > 0 {
		logEntry["data"] = fields
	}

	jsonBytes, _ := json.Marshal(logEntry)
	fmt.Fprintln(r.out, string(jsonBytes))
}

// formatValue formatea valores para logfmt (entrecomilla strings con espacios)
func (r *PlainPresenter) formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if strings.Contains(val, " ") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case time.Duration:
		return val.String()
	case float64:
		return fmt.Sprintf("%.1f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Start inicia la presentación
func (r *PlainPresenter) Start(info ScanInfo) {
	r.startTime = time.Now()
	r.log("INFO", "scan_started", map[string]interface{}{
		"scan_id":     info.ScanID,
		"scan_name":   info.ScanName,
		"target":      info.Target,
		"target_type": info.TargetType,
		"modules":     strings.Join(info.Modules, ","),
		"threads":     info.MaxThreads,
	})
}

// ModuleStarted notifica que un módulo superó su setup
func (r *PlainPresenter) ModuleStarted(name string) {
	r.log("INFO", "module_started", map[string]interface{}{
		"module": name,
	})
}

// ModuleFailed notifica que un módulo entró en estado de error
func (r *PlainPresenter) ModuleFailed(name, reason string) {
	r.log("WARN", "module_failed", map[string]interface{}{
		"module": name,
		"reason": reason,
	})
}

// EventDiscovered notifica un evento aceptado en el flujo
func (r *PlainPresenter) EventDiscovered(eventType, module string, total int) {
	r.log("INFO", "event_discovered", map[string]interface{}{
		"type":   eventType,
		"module": module,
		"total":  total,
	})
}

// Info muestra un mensaje informativo
func (r *PlainPresenter) Info(msg string) {
	r.log("INFO", msg, nil)
}

// Warning muestra una advertencia
func (r *PlainPresenter) Warning(msg string) {
	r.log("WARN", msg, nil)
}

// Error muestra un error
func (r *PlainPresenter) Error(msg string) {
	r.log("ERROR", msg, nil)
}

// Finish finaliza la presentación con estadísticas finales
func (r *PlainPresenter) Finish(stats ScanStats) {
	r.log("INFO", "scan_completed", map[string]interface{}{
		"status":         stats.Status,
		"duration":       stats.TotalDuration,
		"events":         stats.TotalEvents,
		"modules_ok":     stats.ModulesSucceeded,
		"modules_failed": stats.ModulesFailed,
		"correlations":   stats.Correlations,
	})

	if len(stats.EventsByType) > 0 {
		r.log("INFO", "events_by_type", map[string]interface{}{
			"breakdown": stats.EventsByType,
		})
	}

	if len(stats.CorrelationsByRisk) > 0 {
		r.log("INFO", "correlations_by_risk", map[string]interface{}{
			"breakdown": stats.CorrelationsByRisk,
		})
	}
}

// Close limpia recursos
func (r *PlainPresenter) Close() error {
	return nil
}
