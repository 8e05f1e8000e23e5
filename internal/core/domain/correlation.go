// internal/core/domain/correlation.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Risk gradúa la severidad de una regla o resultado de correlación.
type Risk string

const (
	RiskInfo   Risk = "INFO"
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// IsValid verifica si el nivel de riesgo pertenece al enum.
func (r Risk) IsValid() bool {
	switch r {
	case RiskInfo, RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// String retorna la representación string del nivel.
func (r Risk) String() string {
	return string(r)
}

// Rank retorna un orden numérico creciente con la severidad, útil para
// ordenar resúmenes. Niveles desconocidos quedan por debajo de INFO.
func (r Risk) Rank() int {
	switch r {
	case RiskInfo:
		return 1
	case RiskLow:
		return 2
	case RiskMedium:
		return 3
	case RiskHigh:
		return 4
	default:
		return 0
	}
}

// CorrelationResult es un hallazgo producido por el motor de
// correlación: un grupo de condiciones satisfecho sobre los eventos
// persistidos de un escaneo.
type CorrelationResult struct {
	// ID identificador único del resultado
	ID string

	// Title título resuelto, legible para humanos
	Title string

	// RuleID identificador de la regla que lo produjo
	RuleID string

	// RuleName nombre legible de la regla
	RuleName string

	// RuleRisk severidad declarada por la regla
	RuleRisk Risk

	// Events hashes de los eventos que contribuyeron al hallazgo
	Events []string

	// Created instante de creación del resultado
	Created time.Time
}

// NewCorrelationResult crea un resultado con identificador propio.
func NewCorrelationResult(ruleID, ruleName string, risk Risk, title string, eventHashes []string) *CorrelationResult {
	return &CorrelationResult{
		ID:       uuid.New().String(),
		Title:    title,
		RuleID:   ruleID,
		RuleName: ruleName,
		RuleRisk: risk,
		Events:   eventHashes,
		Created:  time.Now(),
	}
}
