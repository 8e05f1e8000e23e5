// cmd/noctua/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"noctua/internal/adapters/output"
	"noctua/internal/adapters/storage/sqlite"
	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/core/usecases"
	"noctua/internal/platform/cache"
	"noctua/internal/platform/config"
	"noctua/internal/platform/httpclient"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/resilience"
	"noctua/internal/platform/threadpool"
	"noctua/internal/platform/ui"

	// Import modules for auto-registration via init()
	_ "noctua/internal/modules/crtsh"
	_ "noctua/internal/modules/dnsdomain"
	_ "noctua/internal/modules/dnsresolve"
	_ "noctua/internal/modules/emailextract"
	_ "noctua/internal/modules/rdap"
)

var (
	// Rellenables con -ldflags en build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// run concentra el flujo para que los defer corran antes del exit code.
func run() int {
	// 1. Configuración centralizada (help/version salen dentro de Load)
	cfg, err := config.Load(version, commit, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration load failed: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Try: noctua -h for help")
		return 2
	}

	// 2. Logger encolado compartido: un único consumidor escribe stderr
	logger := logx.NewQueued(os.Stderr, 0)
	logger.SetLevel(logx.ParseLevel(cfg.Core.LogLevel))
	defer logger.Close()

	// 3. Contexto raíz con señales y timeout global opcional
	ctx, cancel := rootContextWithSignals(cfg.Timeout())
	defer cancel()

	// 4. Almacenamiento SQLite con reintento sobre escrituras requeridas
	base, err := sqlite.New(cfg.Storage.DatabasePath, logger)
	if err != nil {
		logger.Err(err, "phase", "storage-open", "path", cfg.Storage.DatabasePath)
		return 1
	}
	defer base.Close()
	store := resilience.NewRetryingStore(base, logger)

	// 5. Pool de tareas compartido por todos los módulos
	pool := threadpool.New(threadpool.Config{
		DefaultMax: cfg.Core.MaxThreads,
		Logger:     logger,
	})
	defer pool.Shutdown(false)

	// 6. Presenter según el modo de interfaz
	presenter := ui.ForMode(cfg.Output.UIMode)
	defer presenter.Close()

	// 7. Fachada del motor
	svc, err := usecases.NewScanService(usecases.ScanServiceOptions{
		Store:         store,
		Pool:          pool,
		Deps:          platformDeps(cfg, logger),
		Presenter:     presenter,
		Logger:        logger,
		RulesDir:      cfg.Rules.Dir,
		ModuleThreads: cfg.Core.ModuleThreads,
	})
	if err != nil {
		logger.Err(err, "phase", "service-build")
		return 1
	}

	// 8. Despacho de subcomandos
	switch cfg.Core.Command {
	case "scan":
		return runScan(ctx, cfg, svc, logger)
	case "list":
		return runList(ctx, svc, logger)
	case "status":
		return runStatus(ctx, cfg, svc, logger)
	case "stop":
		return runStop(ctx, cfg, svc, logger)
	case "results":
		return runResults(ctx, cfg, svc, logger)
	case "correlations":
		return runCorrelations(ctx, cfg, svc, logger)
	case "logs":
		return runLogs(ctx, cfg, svc, logger)
	default:
		// Validate ya filtró esto; por si acaso
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cfg.Core.Command)
		return 2
	}
}

// runScan ejecuta un escaneo completo contra el target configurado.
func runScan(ctx context.Context, cfg config.Config, svc *usecases.ScanService, logger logx.Logger) int {
	if cfg.Core.Target == "" {
		fmt.Fprintln(os.Stderr, "Error: target is required")
		fmt.Fprintln(os.Stderr, "Usage: noctua -t <target>")
		fmt.Fprintln(os.Stderr, "Try: noctua -h for help")
		return 2
	}

	logger.Info("noctua starting",
		"version", version,
		"commit", commit,
		"target", cfg.Core.Target,
		"usecase", cfg.Core.UseCase,
		"threads", cfg.Core.MaxThreads,
	)

	outcome, runErr := svc.StartScan(ctx, usecases.StartScanRequest{
		Name:          cfg.Core.ScanName,
		Target:        cfg.Core.Target,
		TargetType:    cfg.Core.TargetType,
		Modules:       cfg.Core.ModuleNames,
		EventTypes:    cfg.Core.EventTypes,
		UseCase:       cfg.Core.UseCase,
		ModuleOptions: cfg.Modules.Options,
		Correlate:     cfg.Rules.Correlate,
	})
	if runErr != nil {
		logger.Err(runErr, "phase", "scan")
	}
	if outcome == nil {
		return 1
	}

	logger.Info("scan ended",
		"scan", outcome.ScanID,
		"status", outcome.Status.String(),
		"events", outcome.TotalEvents,
		"elapsed_ms", outcome.Duration.Milliseconds(),
	)

	// Con -f json el resumen en vivo se complementa con un export a disco
	if cfg.Output.Format == "json" {
		if code := exportScanJSON(ctx, cfg, svc, outcome.ScanID, logger); code != 0 {
			return code
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

// exportScanJSON vuelca el escaneo terminado al directorio de salida.
func exportScanJSON(ctx context.Context, cfg config.Config, svc *usecases.ScanService, scanID string, logger logx.Logger) int {
	scan, events, correlations, err := loadScanData(ctx, svc, scanID)
	if err != nil {
		logger.Err(err, "phase", "export")
		return 1
	}
	report := output.BuildReport(scan, events, correlations)
	path, err := output.WriteJSON(cfg.Output.Dir, report)
	if err != nil {
		logger.Err(err, "phase", "export")
		return 1
	}
	logger.Info("results exported", "path", path)
	return 0
}

// runList imprime los escaneos almacenados, el más reciente primero.
func runList(ctx context.Context, svc *usecases.ScanService, logger logx.Logger) int {
	scans, err := svc.ListScans(ctx)
	if err != nil {
		logger.Err(err, "phase", "list")
		return 1
	}
	if err := output.RenderScanList(scans); err != nil {
		logger.Err(err, "phase", "list")
		return 1
	}
	return 0
}

// runStatus muestra el estado persistido de un escaneo. Para escaneos
// terminados añade el resumen de hallazgos por severidad; la primera
// línea sigue siendo solo el estado para consumo desde scripts.
func runStatus(ctx context.Context, cfg config.Config, svc *usecases.ScanService, logger logx.Logger) int {
	if cfg.Core.ScanID == "" {
		fmt.Fprintln(os.Stderr, "Error: --scan <id> is required")
		return 2
	}
	status, err := svc.ScanStatus(ctx, cfg.Core.ScanID)
	if err != nil {
		logger.Err(err, "phase", "status", "scan", cfg.Core.ScanID)
		return 1
	}
	fmt.Println(status.String())

	if status.IsTerminal() {
		if summary, err := svc.CorrelationSummary(ctx, cfg.Core.ScanID); err == nil && len(summary) > 0 {
			fmt.Printf("Findings: %s\n", findingsSummary(summary))
		}
	}
	return 0
}

// runStop solicita la parada cooperativa de un escaneo vivo.
func runStop(ctx context.Context, cfg config.Config, svc *usecases.ScanService, logger logx.Logger) int {
	if cfg.Core.ScanID == "" {
		fmt.Fprintln(os.Stderr, "Error: --scan <id> is required")
		return 2
	}
	if err := svc.StopScan(ctx, cfg.Core.ScanID); err != nil {
		logger.Err(err, "phase", "stop", "scan", cfg.Core.ScanID)
		return 1
	}
	logger.Info("abort requested", "scan", cfg.Core.ScanID)
	return 0
}

// runResults exporta los eventos de un escaneo: JSON por stdout o tabla.
func runResults(ctx context.Context, cfg config.Config, svc *usecases.ScanService, logger logx.Logger) int {
	if cfg.Core.ScanID == "" {
		fmt.Fprintln(os.Stderr, "Error: --scan <id> is required")
		return 2
	}

	scan, events, correlations, err := loadScanData(ctx, svc, cfg.Core.ScanID)
	if err != nil {
		logger.Err(err, "phase", "results", "scan", cfg.Core.ScanID)
		return 1
	}

	exporter := output.ExporterFor(cfg.Output.Format)
	if err := exporter.Export(scan, events, correlations, ports.DefaultExportOptions()); err != nil {
		logger.Err(err, "phase", "results", "format", exporter.Name())
		return 1
	}
	return 0
}

// runCorrelations muestra los hallazgos de correlación de un escaneo.
func runCorrelations(ctx context.Context, cfg config.Config, svc *usecases.ScanService, logger logx.Logger) int {
	if cfg.Core.ScanID == "" {
		fmt.Fprintln(os.Stderr, "Error: --scan <id> is required")
		return 2
	}

	scan, _, correlations, err := loadScanData(ctx, svc, cfg.Core.ScanID)
	if err != nil {
		logger.Err(err, "phase", "correlations", "scan", cfg.Core.ScanID)
		return 1
	}
	report := output.BuildReport(scan, nil, correlations)
	if err := output.RenderCorrelations(report.Correlations); err != nil {
		logger.Err(err, "phase", "correlations")
		return 1
	}
	return 0
}

// runLogs muestra el log persistido de un escaneo, una línea por
// entrada en orden de escritura.
func runLogs(ctx context.Context, cfg config.Config, svc *usecases.ScanService, logger logx.Logger) int {
	if cfg.Core.ScanID == "" {
		fmt.Fprintln(os.Stderr, "Error: --scan <id> is required")
		return 2
	}
	entries, err := svc.ScanLogs(ctx, cfg.Core.ScanID)
	if err != nil {
		logger.Err(err, "phase", "logs", "scan", cfg.Core.ScanID)
		return 1
	}
	for _, entry := range entries {
		fmt.Printf("%s %-5s %-14s %s\n",
			entry.Generated.Format("2006-01-02 15:04:05"),
			strings.ToUpper(entry.Level),
			entry.Component,
			entry.Message,
		)
	}
	return 0
}

// loadScanData reúne registro, eventos y hallazgos de un escaneo.
func loadScanData(ctx context.Context, svc *usecases.ScanService, scanID string) (*domain.Scan, []*domain.Event, []*domain.CorrelationResult, error) {
	scan, err := svc.ScanRecord(ctx, scanID)
	if err != nil {
		return nil, nil, nil, err
	}
	events, err := svc.ScanResults(ctx, scanID, ports.EventQuery{})
	if err != nil {
		return nil, nil, nil, err
	}
	correlations, err := svc.Correlations(ctx, scanID)
	if err != nil {
		return nil, nil, nil, err
	}
	return scan, events, correlations, nil
}

// findingsSummary aplana el conteo por severidad en una línea, de mayor
// a menor riesgo. Ejemplo: "2 HIGH, 1 MEDIUM, 3 INFO".
func findingsSummary(summary map[domain.Risk]int) string {
	risks := make([]domain.Risk, 0, len(summary))
	for risk := range summary {
		risks = append(risks, risk)
	}
	sort.Slice(risks, func(i, j int) bool {
		return risks[i].Rank() > risks[j].Rank()
	})

	parts := make([]string, 0, len(risks))
	for _, risk := range risks {
		parts = append(parts, fmt.Sprintf("%d %s", summary[risk], risk))
	}
	return strings.Join(parts, ", ")
}

// platformDeps construye los servicios de plataforma que reciben los
// módulos: configuración HTTP base, caché compartida y resolver DNS.
func platformDeps(cfg config.Config, logger logx.Logger) registry.Deps {
	userAgent := cfg.Network.UserAgent
	if userAgent == "" {
		userAgent = "noctua/" + version
	}

	return registry.Deps{
		Logger: logger,
		HTTP: httpclient.Config{
			UserAgent: userAgent,
			ProxyURL:  cfg.Network.ProxyURL,
		},
		Cache:    cache.NewMemoryCache(4096),
		Resolver: resolverFor(cfg.Network.DNSServer),
	}
}

// resolverFor retorna un resolver apuntando al servidor DNS indicado,
// o nil para usar el del sistema.
func resolverFor(server string) *net.Resolver {
	if server == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, server)
		},
	}
}

// rootContextWithSignals crea el contexto raíz con timeout opcional y
// cancelación por SIGINT/SIGTERM.
func rootContextWithSignals(timeout time.Duration) (context.Context, context.CancelFunc) {
	var base context.Context
	var baseCancel context.CancelFunc

	if timeout > 0 {
		base, baseCancel = context.WithTimeout(context.Background(), timeout)
	} else {
		base, baseCancel = context.WithCancel(context.Background())
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			baseCancel()
		case <-base.Done():
		}
	}()

	cleanup := func() {
		signal.Stop(ch)
		baseCancel()
	}

	return base, cleanup
}
