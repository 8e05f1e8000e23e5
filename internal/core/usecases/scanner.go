// internal/core/usecases/scanner.go
package usecases

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/threadpool"
	"noctua/internal/platform/ui"
)

const scannerComponent = "scanner"

// ScannerOptions configura un escaneo individual.
type ScannerOptions struct {
	// ScanID identificador de instancia. Vacío = se genera uno.
	ScanID string

	// ScanName nombre legible. Vacío = se usa el valor del target.
	ScanName string

	// Target objetivo validado del escaneo.
	Target *domain.Target

	// Modules nombres de módulos ya resueltos, en orden de construcción.
	Modules []string

	// ModuleOptions opciones por módulo para Setup.
	ModuleOptions map[string]map[string]string

	// Store persistencia del escaneo.
	Store ports.Storage

	// Pool substrato de ejecución compartido.
	Pool *threadpool.Pool

	// Deps servicios de plataforma inyectados a las factories.
	Deps registry.Deps

	// Presenter destino de la narración de progreso. Nil = silencioso.
	Presenter ui.Presenter

	// Logger logger base. Nil = logger por defecto.
	Logger logx.Logger

	// ModuleThreads tope de entregas concurrentes por módulo.
	ModuleThreads int

	// PollInterval cadencia del sondeo de abort sobre el estado persistido.
	PollInterval time.Duration
}

// ScanOutcome resume la ejecución de un escaneo terminado.
type ScanOutcome struct {
	ScanID           string
	Status           domain.ScanStatus
	Duration         time.Duration
	TotalEvents      int
	EventsByType     map[string]int
	ModulesSucceeded int
	ModulesFailed    int

	// Correlations lo rellena el servicio cuando la correlación
	// post-escaneo está habilitada.
	Correlations int
}

// Scanner dirige un escaneo de punta a punta: construye y cablea los
// módulos, inyecta el evento raíz y actúa como única autoridad del flujo
// de eventos (deduplicación, persistencia y fan-out hacia listeners).
type Scanner struct {
	scanID    string
	scanName  string
	target    *domain.Target
	names     []string
	opts      map[string]map[string]string
	store     ports.Storage
	pool      *threadpool.Pool
	deps      registry.Deps
	presenter ui.Presenter
	logger    logx.Logger

	moduleThreads int
	pollInterval  time.Duration

	arena *domain.EventArena
	stop  *ports.StopFlag

	modules  []ports.Module
	byName   map[string]ports.Module
	wildcard map[string]bool

	// tracked cuenta las entregas vivas: el escaneo termina cuando
	// llega a cero y ningún handler puede producir más trabajo.
	tracked sync.WaitGroup

	total       atomic.Int64
	persistFail atomic.Bool
	aborting    atomic.Bool
}

// NewScanner valida las opciones y construye el escáner.
func NewScanner(opts ScannerOptions) (*Scanner, error) {
	if opts.Target == nil {
		return nil, errors.Wrap(errors.ErrValidation, "scanner requires a target")
	}
	if opts.Store == nil {
		return nil, errors.Wrap(errors.ErrValidation, "scanner requires storage")
	}
	if opts.Pool == nil {
		return nil, errors.Wrap(errors.ErrValidation, "scanner requires a task pool")
	}
	if len(opts.Modules) == 0 {
		return nil, errors.Wrap(errors.ErrValidation, "scanner requires at least one module")
	}
	if opts.ScanID == "" {
		opts.ScanID = domain.NewScanID()
	}
	if opts.ScanName == "" {
		opts.ScanName = opts.Target.Value()
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Presenter == nil {
		opts.Presenter = ui.NewNoopPresenter()
	}
	if opts.ModuleThreads <= 0 {
		opts.ModuleThreads = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 1 * time.Second
	}
	if opts.Deps.Logger == nil {
		opts.Deps.Logger = opts.Logger
	}

	return &Scanner{
		scanID:        opts.ScanID,
		scanName:      opts.ScanName,
		target:        opts.Target,
		names:         opts.Modules,
		opts:          opts.ModuleOptions,
		store:         opts.Store,
		pool:          opts.Pool,
		deps:          opts.Deps,
		presenter:     opts.Presenter,
		logger:        opts.Logger.With("component", scannerComponent).With("scan", opts.ScanID),
		moduleThreads: opts.ModuleThreads,
		pollInterval:  opts.PollInterval,
		arena:         domain.NewEventArena(),
		stop:          &ports.StopFlag{},
		byName:        make(map[string]ports.Module),
		wildcard:      make(map[string]bool),
	}, nil
}

// ScanID retorna el identificador de la instancia.
func (s *Scanner) ScanID() string {
	return s.scanID
}

// Run ejecuta el escaneo completo y retorna su resumen. El error solo es
// no-nil ante fallos de arranque o de persistencia requerida; los fallos
// de módulos individuales nunca tumban el escaneo.
func (s *Scanner) Run(ctx context.Context) (*ScanOutcome, error) {
	started := time.Now()

	scan := &domain.Scan{
		ID:         s.scanID,
		Name:       s.scanName,
		Target:     s.target.Value(),
		TargetType: s.target.Type(),
		Created:    started,
		Status:     domain.ScanStatusCreated,
	}
	if err := s.store.CreateScanInstance(ctx, scan); err != nil {
		return nil, errors.Wrap(err, "failed to persist scan instance")
	}

	s.presenter.Start(ui.ScanInfo{
		ScanID:     s.scanID,
		ScanName:   s.scanName,
		Target:     s.target.Value(),
		TargetType: s.target.Type().String(),
		Modules:    s.names,
		MaxThreads: s.moduleThreads,
	})

	if err := s.prepare(ctx); err != nil {
		s.finalize(ctx, domain.ScanStatusFailed)
		s.presenter.Error(err.Error())
		return s.outcome(ctx, domain.ScanStatusFailed, started), err
	}

	s.setStatus(ctx, domain.ScanStatusRunning)
	s.logScanLog(ctx, "info", "scan running")

	pollDone := make(chan struct{})
	go s.pollAbort(ctx, pollDone)

	if err := s.injectRoot(ctx); err != nil {
		close(pollDone)
		s.finalize(ctx, domain.ScanStatusFailed)
		s.presenter.Error(err.Error())
		return s.outcome(ctx, domain.ScanStatusFailed, started), err
	}

	// Quiescencia: ninguna entrega en vuelo ni encolada puede ya
	// producir trabajo nuevo.
	s.tracked.Wait()
	close(pollDone)

	status := domain.ScanStatusFinished
	switch {
	case s.persistFail.Load():
		status = domain.ScanStatusFailed
	case s.aborting.Load():
		status = domain.ScanStatusAborted
	}
	s.finalize(ctx, status)

	out := s.outcome(ctx, status, started)
	if s.persistFail.Load() {
		return out, errors.Wrap(errors.ErrPersistence, "scan failed persisting required writes")
	}
	return out, nil
}

// prepare construye, configura y cablea los módulos. Cualquier fallo
// aquí impide arrancar el flujo: el escaneo pasa a FAILED.
func (s *Scanner) prepare(ctx context.Context) error {
	s.setStatus(ctx, domain.ScanStatusStarting)

	modules, err := registry.Global().Build(s.names, s.deps)
	if err != nil {
		return errors.Wrap(err, "failed to build modules")
	}
	s.modules = modules

	env := &ports.ModuleEnv{
		ScanID: s.scanID,
		Target: s.target,
		Arena:  s.arena,
		Sink:   s,
		Status: s.store,
		Stop:   s.stop,
		Logger: s.logger,
	}

	for _, m := range s.modules {
		name := m.Name()
		if err := m.Setup(ctx, env, s.moduleOptions(name)); err != nil {
			return errors.Wrapf(errors.ErrSetupFailed, "module %s: %v", name, err)
		}
		s.byName[name] = m
		s.wildcard[name] = watchesWildcard(m)
		s.presenter.ModuleStarted(name)
	}

	s.wire()
	return nil
}

// wire registra los listeners: C escucha a P cuando su conjunto
// observado intersecta lo producido por P, o cuando observa "*". Un
// módulo comodín nunca se escucha a sí mismo; un módulo con conjunto
// explícito sí puede, y el corte de ciclos lo da la supresión por
// camino en la arena.
func (s *Scanner) wire() {
	for _, producer := range s.modules {
		produced := producer.ProducedEvents()
		for _, consumer := range s.modules {
			if s.wildcard[consumer.Name()] {
				if consumer.Name() == producer.Name() {
					continue
				}
				producer.RegisterListener(consumer)
				continue
			}
			if intersects(consumer.WatchedEvents(), produced) {
				producer.RegisterListener(consumer)
			}
		}
	}
}

// injectRoot siembra el flujo: primero el evento raíz y después el
// evento semilla, del tipo del target, colgado de la raíz. El escáner
// actúa como pseudo-módulo productor con todos los módulos de listener.
func (s *Scanner) injectRoot(ctx context.Context) error {
	root, err := domain.NewRootEvent(s.target.Value(), scannerComponent)
	if err != nil {
		return errors.Wrap(err, "failed to build root event")
	}
	s.accept(ctx, root, false)

	seed, err := domain.NewEvent(string(s.target.Type()), s.target.Value(), scannerComponent, root)
	if err != nil {
		return errors.Wrap(err, "failed to build seed event")
	}
	s.accept(ctx, seed, false)
	return nil
}

// Accept implementa ports.EventSink: el único camino por el que un
// descubrimiento entra al escaneo.
func (s *Scanner) Accept(ev *domain.Event, storeOnly bool) {
	s.accept(context.Background(), ev, storeOnly)
}

func (s *Scanner) accept(ctx context.Context, ev *domain.Event, storeOnly bool) {
	if ev == nil {
		return
	}
	if s.stop.IsSet() {
		// Emisiones tardías de handlers drenando: no admiten entrega
		s.logger.Debug("event dropped during shutdown", "type", ev.Type)
		return
	}

	// La arena es la única autoridad de deduplicación: el perdedor se
	// descarta sin persistir ni entregar.
	if !s.arena.AddIfAbsent(ev) {
		s.logger.Debug("duplicate event dropped", "type", ev.Type, "module", ev.Module)
		return
	}

	// Persistir antes de cualquier entrega: un hijo nunca alcanza un
	// listener antes de que exista la fila de su padre.
	if err := s.store.StoreEvent(ctx, s.scanID, ev); err != nil {
		s.logger.Err(err, "op", "StoreEvent", "type", ev.Type)
		s.persistFail.Store(true)
		s.stop.Set()
		return
	}

	total := int(s.total.Add(1))
	s.presenter.EventDiscovered(ev.Type, ev.Module, total)

	if storeOnly {
		return
	}

	for _, listener := range s.listenersOf(ev.Module) {
		if !wants(listener, ev.Type) {
			continue
		}
		if listener.ErrorState() {
			continue
		}
		s.deliver(listener, ev)
	}
}

// deliver encola la entrega de un evento a un listener bajo el grupo del
// listener en el pool. La admisión del pool bloquea cuando el grupo está
// lleno, y un worker del mismo grupo no puede esperarse a sí mismo, así
// que la admisión corre fuera del worker.
func (s *Scanner) deliver(listener ports.Module, ev *domain.Event) {
	s.tracked.Add(1)

	go func() {
		_, err := s.pool.Submit(listener.Name(), s.moduleThreads, func(ctx context.Context) error {
			defer s.tracked.Done()

			if listener.ErrorState() || s.stop.IsSet() {
				return nil
			}
			if err := s.safeHandle(ctx, listener, ev); err != nil {
				s.moduleFailed(ctx, listener, err)
				return err
			}
			return nil
		})
		if err != nil {
			// Pool apagado: la entrega no llegó a encolarse
			s.tracked.Done()
		}
	}()
}

// safeHandle aísla la ejecución del handler: un panic se convierte en
// error y nunca cruza la frontera del módulo.
func (s *Scanner) safeHandle(ctx context.Context, listener ports.Module, ev *domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrPluginRuntime,
				"module %s panicked handling %s: %v", listener.Name(), ev.Type, r)
		}
	}()

	if herr := listener.HandleEvent(ctx, ev); herr != nil {
		return errors.Wrapf(errors.ErrPluginRuntime,
			"module %s failed handling %s: %v", listener.Name(), ev.Type, herr)
	}
	return nil
}

// moduleFailed marca el estado de error pegajoso del módulo. El escaneo
// continúa: el fallo queda contenido en ese módulo.
func (s *Scanner) moduleFailed(ctx context.Context, m ports.Module, err error) {
	s.logger.Err(err, "module", m.Name())
	s.writeScanLog(ctx, m.Name(), "error", err.Error())

	if !m.ErrorState() {
		m.TripErrorState()
		s.presenter.ModuleFailed(m.Name(), err.Error())
	}
}

// pollAbort sondea el estado persistido buscando una petición externa de
// aborto, y propaga la cancelación del contexto al flag de parada.
func (s *Scanner) pollAbort(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			s.logger.Info("scan context cancelled, stopping")
			s.aborting.Store(true)
			s.stop.Set()
			return
		case <-ticker.C:
			status, err := s.store.ReadScanStatus(ctx, s.scanID)
			if err != nil {
				s.logger.Warn("abort poll failed", "error", err.Error())
				continue
			}
			if status == domain.ScanStatusAbortRequested {
				s.logger.Info("abort requested, draining")
				s.logScanLog(ctx, "warn", "abort requested")
				s.aborting.Store(true)
				s.stop.Set()
				return
			}
		}
	}
}

// finalize lleva el escaneo a su estado terminal y cierra los módulos.
func (s *Scanner) finalize(ctx context.Context, status domain.ScanStatus) {
	s.setStatus(ctx, status)
	s.logScanLog(ctx, "info", "scan "+strings.ToLower(status.String()))
	s.closeModules()
}

func (s *Scanner) closeModules() {
	for _, m := range s.modules {
		if err := m.Close(); err != nil {
			s.logger.Warn("module close failed", "module", m.Name(), "error", err.Error())
		}
	}
}

// outcome construye el resumen final consultando el almacenamiento.
func (s *Scanner) outcome(ctx context.Context, status domain.ScanStatus, started time.Time) *ScanOutcome {
	out := &ScanOutcome{
		ScanID:      s.scanID,
		Status:      status,
		Duration:    time.Since(started),
		TotalEvents: int(s.total.Load()),
	}

	if summary, err := s.store.SummarizeEvents(ctx, s.scanID); err == nil {
		out.EventsByType = summary
	} else {
		s.logger.Warn("event summary unavailable", "error", err.Error())
	}

	for _, m := range s.modules {
		if m.ErrorState() {
			out.ModulesFailed++
		} else {
			out.ModulesSucceeded++
		}
	}
	return out
}

// setStatus persiste una transición de estado. Un fallo aquí es un fallo
// de escritura requerida: el escaneo queda marcado para FAILED.
func (s *Scanner) setStatus(ctx context.Context, status domain.ScanStatus) {
	if err := s.store.SetScanStatus(ctx, s.scanID, status); err != nil {
		s.logger.Err(err, "op", "SetScanStatus", "status", status.String())
		if !status.IsTerminal() {
			s.persistFail.Store(true)
			s.stop.Set()
		}
	}
}

// logScanLog escribe una línea del escáner en el log persistido.
func (s *Scanner) logScanLog(ctx context.Context, level, message string) {
	s.writeScanLog(ctx, scannerComponent, level, message)
}

// writeScanLog escribe una línea en el log persistido del escaneo.
// Best-effort: el fallo solo se anota en el logger local.
func (s *Scanner) writeScanLog(ctx context.Context, component, level, message string) {
	if err := s.store.LogScanEvent(ctx, s.scanID, component, level, message); err != nil {
		s.logger.Debug("scan log write failed", "error", err.Error())
	}
}

// moduleOptions retorna las opciones de usuario del módulo dado.
func (s *Scanner) moduleOptions(name string) map[string]string {
	if s.opts == nil {
		return nil
	}
	return s.opts[name]
}

// listenersOf retorna los listeners del módulo productor. El pseudo-
// módulo raíz (el propio escáner) tiene a todos los módulos de listener.
func (s *Scanner) listenersOf(producer string) []ports.Module {
	if m, ok := s.byName[producer]; ok {
		return m.Listeners()
	}
	return s.modules
}

// wants indica si el listener quiere eventos de este tipo. El cableado
// conecta módulos por intersección de conjuntos; esta comprobación
// filtra por evento concreto dentro de esa conexión.
func wants(listener ports.Module, eventType string) bool {
	for _, watched := range listener.WatchedEvents() {
		if watched == domain.WildcardEventType || watched == eventType {
			return true
		}
	}
	return false
}

func watchesWildcard(m ports.Module) bool {
	for _, watched := range m.WatchedEvents() {
		if watched == domain.WildcardEventType {
			return true
		}
	}
	return false
}

func intersects(watched, produced []string) bool {
	for _, w := range watched {
		for _, p := range produced {
			if w == p {
				return true
			}
		}
	}
	return false
}
