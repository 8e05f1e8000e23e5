// internal/core/usecases/rules.go
package usecases

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"noctua/internal/core/domain"
	"noctua/internal/platform/errors"
)

// Campos y métodos admitidos en las condiciones de una regla.
const (
	FieldData   = "data"
	FieldType   = "type"
	FieldModule = "module"

	MethodExact    = "exact"
	MethodRegex    = "regex"
	MethodContains = "contains"
)

// Rule es una regla de correlación cargada desde YAML. El id debe
// coincidir con el nombre base del fichero que la define.
type Rule struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Risk        domain.Risk  `yaml:"risk"`
	Collections []Collection `yaml:"collections"`
	Logic       []LogicGroup `yaml:"logic"`
}

// Collection agrupa eventos persistidos por tipo bajo un id referenciable
// desde las condiciones.
type Collection struct {
	ID    string   `yaml:"id"`
	Types []string `yaml:"types"`
}

// LogicGroup es un grupo de condiciones en conjunción: se satisface
// cuando todas sus condiciones emparejan al menos un evento.
type LogicGroup struct {
	Conditions []Condition `yaml:"conditions"`
	Title      string      `yaml:"title"`
}

// Condition compara un campo de los eventos de una colección contra un
// valor con el método indicado.
type Condition struct {
	From   string `yaml:"from"`
	Field  string `yaml:"field"`
	Method string `yaml:"method"`
	Value  string `yaml:"value"`

	// re es el patrón compilado cuando method es regex
	re *regexp.Regexp
}

// matches evalúa la condición contra un evento.
func (c *Condition) matches(ev *domain.Event) bool {
	if ev == nil {
		return false
	}

	var field string
	switch c.Field {
	case FieldData:
		field = ev.Data
	case FieldType:
		field = ev.Type
	case FieldModule:
		field = ev.Module
	default:
		return false
	}

	switch c.Method {
	case MethodExact:
		return field == c.Value
	case MethodRegex:
		return c.re != nil && c.re.MatchString(field)
	case MethodContains:
		return strings.Contains(field, c.Value)
	default:
		return false
	}
}

// ConditionCount retorna el total de condiciones de la regla.
func (r *Rule) ConditionCount() int {
	total := 0
	for _, group := range r.Logic {
		total += len(group.Conditions)
	}
	return total
}

// LoadRules carga y valida todas las reglas de un directorio. Cualquier
// fichero inválido aborta la carga completa: un conjunto de reglas a
// medias da una falsa sensación de cobertura.
func LoadRules(dir string) ([]*Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read rules directory %s", dir)
	}

	var rules []*Rule
	for _, entry := range entries {
		if entry.IsDir() || !isRuleFile(entry.Name()) {
			continue
		}
		rule, err := LoadRuleFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRuleFile carga una regla individual con decodificación estricta:
// claves desconocidas en el YAML son un error, no una omisión silenciosa.
func LoadRuleFile(path string) (*Rule, error) {
	base := filepath.Base(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read rule file %s", base)
	}

	var rule Rule
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&rule); err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "%s: invalid YAML: %v", base, err)
	}

	if err := validateRule(&rule, base); err != nil {
		return nil, err
	}
	return &rule, nil
}

func isRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// validateRule comprueba la regla completa y compila sus patrones. Los
// errores nombran el fichero y el campo conflictivo.
func validateRule(rule *Rule, file string) error {
	ruleID := strings.TrimSuffix(file, filepath.Ext(file))

	if rule.ID == "" {
		return errors.Wrapf(errors.ErrValidation, "%s: id: missing", file)
	}
	if rule.ID != ruleID {
		return errors.Wrapf(errors.ErrValidation,
			"%s: id: %q does not match file basename %q", file, rule.ID, ruleID)
	}
	if rule.Name == "" {
		return errors.Wrapf(errors.ErrValidation, "%s: name: missing", file)
	}
	if !rule.Risk.IsValid() {
		return errors.Wrapf(errors.ErrValidation, "%s: risk: invalid value %q", file, rule.Risk)
	}

	if len(rule.Collections) == 0 {
		return errors.Wrapf(errors.ErrValidation, "%s: collections: at least one required", file)
	}
	declared := make(map[string]bool, len(rule.Collections))
	for i, col := range rule.Collections {
		if col.ID == "" {
			return errors.Wrapf(errors.ErrValidation, "%s: collections[%d].id: missing", file, i)
		}
		if declared[col.ID] {
			return errors.Wrapf(errors.ErrValidation, "%s: collections[%d].id: duplicate %q", file, i, col.ID)
		}
		declared[col.ID] = true
		if len(col.Types) == 0 {
			return errors.Wrapf(errors.ErrValidation, "%s: collections[%d].types: at least one required", file, i)
		}
	}

	if len(rule.Logic) == 0 {
		return errors.Wrapf(errors.ErrValidation, "%s: logic: at least one group required", file)
	}
	for i := range rule.Logic {
		group := &rule.Logic[i]
		if group.Title == "" {
			return errors.Wrapf(errors.ErrValidation, "%s: logic[%d].title: missing", file, i)
		}
		if len(group.Conditions) == 0 {
			return errors.Wrapf(errors.ErrValidation, "%s: logic[%d].conditions: at least one required", file, i)
		}
		for j := range group.Conditions {
			cond := &group.Conditions[j]
			if err := validateCondition(cond, declared, file, i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateCondition(cond *Condition, declared map[string]bool, file string, group, idx int) error {
	if !declared[cond.From] {
		return errors.Wrapf(errors.ErrValidation,
			"%s: logic[%d].conditions[%d].from: unknown collection %q", file, group, idx, cond.From)
	}

	switch cond.Field {
	case FieldData, FieldType, FieldModule:
	default:
		return errors.Wrapf(errors.ErrValidation,
			"%s: logic[%d].conditions[%d].field: invalid value %q", file, group, idx, cond.Field)
	}

	switch cond.Method {
	case MethodExact, MethodContains:
	case MethodRegex:
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			return errors.Wrapf(errors.ErrValidation,
				"%s: logic[%d].conditions[%d].value: bad regex: %v", file, group, idx, err)
		}
		cond.re = re
	default:
		return errors.Wrapf(errors.ErrValidation,
			"%s: logic[%d].conditions[%d].method: invalid value %q", file, group, idx, cond.Method)
	}

	if cond.Value == "" {
		return errors.Wrapf(errors.ErrValidation,
			"%s: logic[%d].conditions[%d].value: missing", file, group, idx)
	}
	return nil
}
