// internal/core/usecases/scanservice.go
package usecases

import (
	"context"
	"sort"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/threadpool"
	"noctua/internal/platform/ui"
	"noctua/internal/platform/validator"
)

// ScanService es la fachada de alto nivel del motor: arrancar y detener
// escaneos, consultar su estado y recuperar resultados. Es lo que
// consume la CLI.
type ScanService struct {
	store     ports.Storage
	pool      *threadpool.Pool
	deps      registry.Deps
	presenter ui.Presenter
	logger    logx.Logger

	rulesDir      string
	moduleThreads int
	pollInterval  time.Duration
}

// ScanServiceOptions configura la fachada.
type ScanServiceOptions struct {
	Store         ports.Storage
	Pool          *threadpool.Pool
	Deps          registry.Deps
	Presenter     ui.Presenter
	Logger        logx.Logger
	RulesDir      string
	ModuleThreads int
	PollInterval  time.Duration
}

// NewScanService valida las opciones y construye la fachada.
func NewScanService(opts ScanServiceOptions) (*ScanService, error) {
	if opts.Store == nil {
		return nil, errors.Wrap(errors.ErrValidation, "scan service requires storage")
	}
	if opts.Pool == nil {
		return nil, errors.Wrap(errors.ErrValidation, "scan service requires a task pool")
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Presenter == nil {
		opts.Presenter = ui.NewNoopPresenter()
	}

	return &ScanService{
		store:         opts.Store,
		pool:          opts.Pool,
		deps:          opts.Deps,
		presenter:     opts.Presenter,
		logger:        opts.Logger.With("component", "scan-service"),
		rulesDir:      opts.RulesDir,
		moduleThreads: opts.ModuleThreads,
		pollInterval:  opts.PollInterval,
	}, nil
}

// StartScanRequest describe un escaneo a arrancar. La selección de
// módulos sigue la primera vía no vacía: nombres explícitos, tipos de
// evento producidos, o caso de uso.
type StartScanRequest struct {
	Name          string
	Target        string
	TargetType    string
	Modules       []string
	EventTypes    []string
	UseCase       string
	ModuleOptions map[string]map[string]string

	// Correlate ejecuta las reglas al terminar, si el escaneo acaba
	// FINISHED.
	Correlate bool
}

// StartScan valida la petición, resuelve la selección de módulos y
// ejecuta el escaneo completo, incluida la correlación si se pidió.
func (s *ScanService) StartScan(ctx context.Context, req StartScanRequest) (*ScanOutcome, error) {
	target, err := s.resolveTarget(req)
	if err != nil {
		return nil, err
	}

	names, err := s.resolveModules(req)
	if err != nil {
		return nil, err
	}

	scanner, err := NewScanner(ScannerOptions{
		ScanName:      req.Name,
		Target:        target,
		Modules:       names,
		ModuleOptions: req.ModuleOptions,
		Store:         s.store,
		Pool:          s.pool,
		Deps:          s.deps,
		Presenter:     s.presenter,
		Logger:        s.logger,
		ModuleThreads: s.moduleThreads,
		PollInterval:  s.pollInterval,
	})
	if err != nil {
		return nil, err
	}

	outcome, runErr := scanner.Run(ctx)
	if outcome == nil {
		return nil, runErr
	}

	var corrByRisk map[string]int
	if req.Correlate && outcome.Status == domain.ScanStatusFinished {
		outcome.Correlations, corrByRisk = s.correlate(ctx, outcome.ScanID)
	}

	s.presenter.Finish(ui.ScanStats{
		Status:             outcome.Status.String(),
		TotalDuration:      outcome.Duration,
		TotalEvents:        outcome.TotalEvents,
		EventsByType:       outcome.EventsByType,
		ModulesSucceeded:   outcome.ModulesSucceeded,
		ModulesFailed:      outcome.ModulesFailed,
		Correlations:       outcome.Correlations,
		CorrelationsByRisk: corrByRisk,
	})

	return outcome, runErr
}

// correlate carga las reglas y corre el motor de correlación. Retorna
// el total de hallazgos y su desglose por severidad. Cualquier fallo
// aquí degrada a cero resultados: la correlación nunca tumba un escaneo
// ya terminado.
func (s *ScanService) correlate(ctx context.Context, scanID string) (int, map[string]int) {
	rules, err := LoadRules(s.rulesDir)
	if err != nil {
		s.logger.Warn("rules not loaded, skipping correlation", "dir", s.rulesDir, "error", err.Error())
		return 0, nil
	}
	if len(rules) == 0 {
		s.logger.Debug("no rules to evaluate", "dir", s.rulesDir)
		return 0, nil
	}

	results, err := NewCorrelator(s.store, s.logger).Run(ctx, scanID, rules)
	if err != nil {
		s.logger.Warn("correlation failed", "error", err.Error())
		return 0, nil
	}

	byRisk := make(map[string]int, len(results))
	for _, res := range results {
		byRisk[res.RuleRisk.String()]++
	}
	return len(results), byRisk
}

// StopScan solicita la parada cooperativa de un escaneo vivo. Pedirla
// sobre un escaneo ya terminado es un error; repetirla es idempotente.
func (s *ScanService) StopScan(ctx context.Context, scanID string) error {
	scan, err := s.store.ScanInstance(ctx, scanID)
	if err != nil {
		return errors.Wrapf(err, "cannot load scan %s", scanID)
	}

	switch {
	case scan.Status == domain.ScanStatusAbortRequested:
		return nil
	case scan.Status.IsTerminal():
		return errors.Wrapf(errors.ErrValidation,
			"scan %s already ended with status %s", scanID, scan.Status)
	}

	if err := s.store.SetScanStatus(ctx, scanID, domain.ScanStatusAbortRequested); err != nil {
		return errors.Wrapf(err, "cannot request abort for scan %s", scanID)
	}
	s.logger.Info("abort requested", "scan", scanID)
	return nil
}

// ScanStatus retorna el estado persistido actual de un escaneo.
func (s *ScanService) ScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error) {
	return s.store.ReadScanStatus(ctx, scanID)
}

// ScanResults recupera los eventos persistidos de un escaneo según el
// filtro dado.
func (s *ScanService) ScanResults(ctx context.Context, scanID string, q ports.EventQuery) ([]*domain.Event, error) {
	if _, err := s.store.ScanInstance(ctx, scanID); err != nil {
		return nil, errors.Wrapf(err, "cannot load scan %s", scanID)
	}
	return s.store.QueryEvents(ctx, scanID, q)
}

// ScanRecord recupera el registro persistido de un escaneo.
func (s *ScanService) ScanRecord(ctx context.Context, scanID string) (*domain.Scan, error) {
	return s.store.ScanInstance(ctx, scanID)
}

// Correlations recupera los hallazgos de correlación de un escaneo,
// ordenados de mayor a menor severidad y por regla dentro del mismo
// nivel.
func (s *ScanService) Correlations(ctx context.Context, scanID string) ([]*domain.CorrelationResult, error) {
	results, err := s.store.Correlations(ctx, scanID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RuleRisk != results[j].RuleRisk {
			return results[i].RuleRisk.Rank() > results[j].RuleRisk.Rank()
		}
		return results[i].RuleID < results[j].RuleID
	})
	return results, nil
}

// CorrelationSummary cuenta los hallazgos de un escaneo por severidad.
func (s *ScanService) CorrelationSummary(ctx context.Context, scanID string) (map[domain.Risk]int, error) {
	return s.store.SummarizeCorrelations(ctx, scanID)
}

// ScanLogs recupera el log persistido de un escaneo.
func (s *ScanService) ScanLogs(ctx context.Context, scanID string) ([]ports.ScanLogEntry, error) {
	if _, err := s.store.ScanInstance(ctx, scanID); err != nil {
		return nil, errors.Wrapf(err, "cannot load scan %s", scanID)
	}
	return s.store.ScanLogs(ctx, scanID)
}

// ListScans lista los escaneos almacenados, el más reciente primero.
func (s *ScanService) ListScans(ctx context.Context) ([]*domain.Scan, error) {
	return s.store.ListScans(ctx)
}

// resolveTarget construye el target del escaneo, deduciendo el tipo
// cuando la petición no lo fuerza.
func (s *ScanService) resolveTarget(req StartScanRequest) (*domain.Target, error) {
	var targetType domain.TargetType
	if req.TargetType != "" {
		targetType = domain.TargetType(req.TargetType)
		if !targetType.IsValid() {
			return nil, errors.Wrapf(errors.ErrValidation, "unknown target type %q", req.TargetType)
		}
	} else {
		guessed, err := validator.GuessTargetType(req.Target)
		if err != nil {
			return nil, err
		}
		targetType = guessed
		s.logger.Debug("target type detected", "target", req.Target, "type", targetType.String())
	}

	return domain.NewTarget(req.Target, targetType)
}

// resolveModules resuelve la selección a nombres concretos de módulos.
func (s *ScanService) resolveModules(req StartScanRequest) ([]string, error) {
	reg := registry.Global()

	var names []string
	switch {
	case len(req.Modules) > 0:
		names = req.Modules
	case len(req.EventTypes) > 0:
		names = reg.SelectByTypes(req.EventTypes)
	case req.UseCase != "" && req.UseCase != "all":
		uc := ports.UseCase(req.UseCase)
		switch uc {
		case ports.UseCasePassive, ports.UseCaseFootprint, ports.UseCaseInvestigate:
			names = reg.SelectByUseCase(uc)
		default:
			return nil, errors.Wrapf(errors.ErrValidation, "unknown use case %q", req.UseCase)
		}
	default:
		names = reg.List()
	}

	if len(names) == 0 {
		return nil, errors.Wrap(errors.ErrValidation, "no modules match the requested selection")
	}
	return names, nil
}
