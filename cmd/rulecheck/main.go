// cmd/rulecheck/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"noctua/internal/core/usecases"
)

// rulecheck valida un directorio de reglas de correlación fichero a
// fichero y resume las válidas en una tabla. Sale con código 1 si
// alguna regla es inválida.
func main() {
	var dir string
	pflag.StringVarP(&dir, "rules", "r", "rules", "Directorio de reglas a comprobar")
	pflag.Parse()
	if pflag.NArg() > 0 {
		dir = pflag.Arg(0)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		pterm.Error.Printf("cannot read rules directory %s: %v\n", dir, err)
		os.Exit(1)
	}

	data := pterm.TableData{
		{"RULE", "RISK", "COLLECTIONS", "CONDITIONS"},
	}
	checked, invalid := 0, 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isRuleFile(name) {
			continue
		}
		checked++

		rule, err := usecases.LoadRuleFile(filepath.Join(dir, name))
		if err != nil {
			invalid++
			pterm.Error.Printf("%s: %v\n", name, err)
			continue
		}

		cols := make([]string, 0, len(rule.Collections))
		for _, c := range rule.Collections {
			cols = append(cols, c.ID)
		}
		data = append(data, []string{
			rule.ID,
			rule.Risk.String(),
			strings.Join(cols, ","),
			fmt.Sprintf("%d", rule.ConditionCount()),
		})
	}

	if len(data) > 1 {
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	if checked == 0 {
		pterm.Warning.Printf("no rule files found in %s\n", dir)
	}

	if invalid > 0 {
		pterm.Error.Printf("%d of %d rules invalid\n", invalid, checked)
		os.Exit(1)
	}
	pterm.Success.Printf("%d rules OK\n", checked)
}

func isRuleFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
