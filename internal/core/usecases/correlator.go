// internal/core/usecases/correlator.go
package usecases

import (
	"context"
	"strconv"
	"strings"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
)

// Correlator evalúa reglas de correlación sobre los eventos persistidos
// de un escaneo terminado, y persiste los hallazgos que producen.
type Correlator struct {
	store  ports.Storage
	logger logx.Logger
}

// NewCorrelator crea el motor de correlación.
func NewCorrelator(store ports.Storage, logger logx.Logger) *Correlator {
	if logger == nil {
		logger = logx.New()
	}
	return &Correlator{
		store:  store,
		logger: logger.With("component", "correlator"),
	}
}

// Run evalúa las reglas contra el escaneo dado. Cada regla corre de
// forma independiente: una regla que falla se registra y se omite sin
// afectar a las demás. Correlacionar un escaneo aún vivo es un error.
func (c *Correlator) Run(ctx context.Context, scanID string, rules []*Rule) ([]*domain.CorrelationResult, error) {
	scan, err := c.store.ScanInstance(ctx, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load scan %s", scanID)
	}
	if !scan.Status.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrValidation,
			"scan %s is %s: correlation requires a terminal scan", scanID, scan.Status)
	}

	var results []*domain.CorrelationResult
	for _, rule := range rules {
		found, err := c.evaluate(ctx, scanID, rule)
		if err != nil {
			c.logger.Warn("rule skipped", "rule", rule.ID, "error", err.Error())
			continue
		}

		persisted := found[:0]
		for _, result := range found {
			if err := c.store.CreateCorrelationResult(ctx, scanID, result); err != nil {
				c.logger.Warn("correlation result not persisted",
					"rule", rule.ID, "error", err.Error())
				continue
			}
			persisted = append(persisted, result)
		}

		if len(persisted) > 0 {
			c.logger.Info("rule matched", "rule", rule.ID, "risk", rule.Risk.String(), "results", len(persisted))
		}
		results = append(results, persisted...)
	}
	return results, nil
}

// evaluate carga las colecciones de la regla y evalúa sus grupos. Un
// grupo satisfecho produce exactamente un resultado.
func (c *Correlator) evaluate(ctx context.Context, scanID string, rule *Rule) ([]*domain.CorrelationResult, error) {
	collections := make(map[string][]*domain.Event, len(rule.Collections))
	for _, col := range rule.Collections {
		events, err := c.loadCollection(ctx, scanID, col)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrRuleEvaluation,
				"collection %s: %v", col.ID, err)
		}
		collections[col.ID] = events
	}

	var results []*domain.CorrelationResult
	for i := range rule.Logic {
		group := &rule.Logic[i]

		contributing, satisfied := evaluateGroup(group, collections)
		if !satisfied {
			continue
		}

		hashes := make([]string, 0, len(contributing))
		for _, ev := range contributing {
			hashes = append(hashes, ev.Hash())
		}

		title := resolveTitle(group.Title, contributing)
		results = append(results, domain.NewCorrelationResult(rule.ID, rule.Name, rule.Risk, title, hashes))
	}
	return results, nil
}

// loadCollection consulta los eventos de todos los tipos de la colección,
// con los falsos positivos ya filtrados.
func (c *Correlator) loadCollection(ctx context.Context, scanID string, col Collection) ([]*domain.Event, error) {
	var events []*domain.Event
	for _, eventType := range col.Types {
		batch, err := c.store.QueryEvents(ctx, scanID, ports.EventQuery{
			Type:                 eventType,
			FilterFalsePositives: true,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
	}
	return events, nil
}

// evaluateGroup comprueba el grupo: se satisface cuando TODAS sus
// condiciones emparejan al menos un evento, y el conjunto contribuyente
// es la unión de los emparejados, sin duplicados y en orden de aparición.
func evaluateGroup(group *LogicGroup, collections map[string][]*domain.Event) ([]*domain.Event, bool) {
	var contributing []*domain.Event
	seen := make(map[string]bool)

	for i := range group.Conditions {
		cond := &group.Conditions[i]

		matchedAny := false
		for _, ev := range collections[cond.From] {
			if !cond.matches(ev) {
				continue
			}
			matchedAny = true
			if !seen[ev.Hash()] {
				seen[ev.Hash()] = true
				contributing = append(contributing, ev)
			}
		}
		if !matchedAny {
			return nil, false
		}
	}
	return contributing, true
}

// resolveTitle sustituye los marcadores del título: {count} por el
// número de eventos contribuyentes y {data} por el dato del primero.
func resolveTitle(template string, contributing []*domain.Event) string {
	title := strings.ReplaceAll(template, "{count}", strconv.Itoa(len(contributing)))
	if strings.Contains(title, "{data}") {
		first := ""
		if len(contributing) > 0 {
			first = contributing[0].Data
		}
		title = strings.ReplaceAll(title, "{data}", first)
	}
	return title
}
