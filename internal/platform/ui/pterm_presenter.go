// internal/platform/ui/pterm_presenter.go
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// PTermPresenter implementa Presenter usando la biblioteca pterm
// para renderizar spinners, colores y símbolos en la terminal.
type PTermPresenter struct {
	mu sync.Mutex

	scanInfo      ScanInfo
	scanStartTime time.Time

	// Módulos caídos durante el escaneo, nombre → motivo
	failed map[string]string

	// Spinner de actividad del flujo de eventos
	activity *pterm.SpinnerPrinter
}

// NewPTermPresenter crea una nueva instancia del presenter con pterm
func NewPTermPresenter() *PTermPresenter {
	return &PTermPresenter{
		failed: make(map[string]string),
	}
}

// Start inicia la presentación mostrando el banner y la configuración
func (p *PTermPresenter) Start(info ScanInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.scanInfo = info
	p.scanStartTime = time.Now()

	pterm.Println(StylePrimary.Sprint(GetBanner(pterm.GetTerminalWidth())))

	infoPanel := pterm.DefaultBox.
		WithTitle("Scan Configuration").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan))

	targetInfo := fmt.Sprintf("%s Target: %s (%s)\n", IconTarget, pterm.Cyan(info.Target), pterm.Yellow(info.TargetType))
	targetInfo += fmt.Sprintf("   Scan: %s\n", info.ScanName)
	targetInfo += fmt.Sprintf("   ID: %s\n", StyleSecondary.Sprint(info.ScanID))
	targetInfo += fmt.Sprintf("%s Modules: %s\n", IconModules, pterm.Cyan(strings.Join(info.Modules, ", ")))
	targetInfo += fmt.Sprintf("%s Threads: %d", IconWorkers, info.MaxThreads)

	infoPanel.Println(targetInfo)

	pterm.Println()
	pterm.Println(pterm.LightBlue(SeparatorHeavy))
	pterm.Println()
}

// ModuleStarted notifica que un módulo superó su setup
func (p *PTermPresenter) ModuleStarted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	StatusRunning.Style().Println(fmt.Sprintf("  %s %s listening", StatusRunning.Symbol(), name))
}

// ModuleFailed notifica que un módulo entró en estado de error
func (p *PTermPresenter) ModuleFailed(name, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed[name] = reason
	pterm.Warning.Printf("module %s disabled: %s\n", name, reason)
}

// EventDiscovered actualiza el spinner de actividad con el evento recibido
func (p *PTermPresenter) EventDiscovered(eventType, module string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := fmt.Sprintf("  %s %s events · last %s from %s",
		IconEvents,
		StyleAccent.Sprintf("%d", total),
		pterm.Cyan(eventType),
		module,
	)

	if p.activity == nil {
		spinner, err := pterm.DefaultSpinner.
			WithStyle(pterm.NewStyle(pterm.FgCyan)).
			WithSequence("⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷").
			Start(text)
		if err != nil {
			return
		}
		p.activity = spinner
		return
	}

	p.activity.UpdateText(text)
}

// Info muestra un mensaje informativo
func (p *PTermPresenter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Info.Println(msg)
}

// Warning muestra una advertencia
func (p *PTermPresenter) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Warning.Println(msg)
}

// Error muestra un error
func (p *PTermPresenter) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Error.Println(msg)
}

// Finish finaliza la presentación con estadísticas finales
func (p *PTermPresenter) Finish(stats ScanStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopActivity()

	pterm.Println()
	pterm.Println(pterm.LightBlue(SeparatorHeavy))
	pterm.Println()

	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(p.statusBackground(stats.Status))).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("Scan " + stats.Status)

	pterm.Println()

	statsPanel := pterm.DefaultBox.
		WithTitle("Scan Statistics").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen))

	statsContent := fmt.Sprintf("%s Duration: %s\n",
		IconTime,
		pterm.Green(formatDuration(stats.TotalDuration)),
	)
	statsContent += fmt.Sprintf("%s Events: %s\n",
		IconEvents,
		pterm.Cyan(fmt.Sprintf("%d", stats.TotalEvents)),
	)
	statsContent += fmt.Sprintf("%s Modules Succeeded: %s\n",
		IconSuccess,
		pterm.Green(fmt.Sprintf("%d", stats.ModulesSucceeded)),
	)

	if stats.ModulesFailed > 0 {
		statsContent += fmt.Sprintf("%s Modules Failed: %s\n",
			IconError,
			pterm.Red(fmt.Sprintf("%d", stats.ModulesFailed)),
		)
	}

	statsContent += fmt.Sprintf("%s Correlations: %s",
		IconRules,
		pterm.Magenta(fmt.Sprintf("%d", stats.Correlations)),
	)
	if breakdown := riskBreakdown(stats.CorrelationsByRisk); breakdown != "" {
		statsContent += pterm.Gray(" (" + breakdown + ")")
	}

	statsPanel.Println(statsContent)

	if len(stats.EventsByType) > 0 {
		pterm.Println()
		pterm.DefaultSection.WithLevel(2).Println("Events by Type")

		tableData := pterm.TableData{
			{"Type", "Count"},
		}
		for _, tc := range sortedTypeCounts(stats.EventsByType) {
			tableData = append(tableData, []string{tc.Type, fmt.Sprintf("%d", tc.Count)})
		}

		pterm.DefaultTable.
			WithHasHeader().
			WithBoxed().
			WithData(tableData).
			Render()
	}

	if len(p.failed) > 0 {
		pterm.Println()
		pterm.DefaultSection.WithLevel(2).Println("Failed Modules")
		for name, reason := range p.failed {
			StatusError.Style().Println(fmt.Sprintf("  %s %s: %s", StatusError.Symbol(), name, reason))
		}
	}

	pterm.Println()
}

// Close limpia recursos del presenter
func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopActivity()
	return nil
}

// stopActivity detiene el spinner si está activo. Requiere el mutex.
func (p *PTermPresenter) stopActivity() {
	if p.activity != nil {
		p.activity.Stop()
		p.activity = nil
	}
}

// statusBackground elige el color de fondo del header final según el
// estado terminal del escaneo.
func (p *PTermPresenter) statusBackground(status string) pterm.Color {
	switch status {
	case "FINISHED":
		return pterm.BgGreen
	case "ABORTED":
		return pterm.BgYellow
	default:
		return pterm.BgRed
	}
}
