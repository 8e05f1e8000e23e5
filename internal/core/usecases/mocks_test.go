// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/threadpool"
)

// memStore es un ports.Storage en memoria para los tests del scanner y
// del correlador. Registra todo lo que el motor persiste y permite
// inyectar fallos puntuales por operación.
type memStore struct {
	mu            sync.Mutex
	scans         map[string]*domain.Scan
	events        map[string][]*domain.Event
	eventIndex    map[string]map[string]bool
	falsePositive map[string]map[string]bool
	correlations  map[string][]*domain.CorrelationResult
	statusHistory map[string][]domain.ScanStatus
	scanLogs      map[string][]ports.ScanLogEntry

	storeEventErr error
	setStatusErr  error
	queryErr      func(q ports.EventQuery) error
	createCorrErr error
	reconnects    int
	closed        bool
}

func newMemStore() *memStore {
	return &memStore{
		scans:         make(map[string]*domain.Scan),
		events:        make(map[string][]*domain.Event),
		eventIndex:    make(map[string]map[string]bool),
		falsePositive: make(map[string]map[string]bool),
		correlations:  make(map[string][]*domain.CorrelationResult),
		statusHistory: make(map[string][]domain.ScanStatus),
		scanLogs:      make(map[string][]ports.ScanLogEntry),
	}
}

func (m *memStore) CreateScanInstance(ctx context.Context, scan *domain.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[scan.ID]; ok {
		return errors.Wrapf(errors.ErrAlreadyExists, "scan %s", scan.ID)
	}
	copied := *scan
	m.scans[scan.ID] = &copied
	m.statusHistory[scan.ID] = append(m.statusHistory[scan.ID], scan.Status)
	return nil
}

func (m *memStore) ScanInstance(ctx context.Context, scanID string) (*domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[scanID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "scan %s", scanID)
	}
	copied := *scan
	return &copied, nil
}

func (m *memStore) ListScans(ctx context.Context) ([]*domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Scan, 0, len(m.scans))
	for _, scan := range m.scans {
		copied := *scan
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memStore) SetScanStatus(ctx context.Context, scanID string, status domain.ScanStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setStatusErr != nil {
		return m.setStatusErr
	}
	scan, ok := m.scans[scanID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "scan %s", scanID)
	}
	scan.Status = status
	m.statusHistory[scanID] = append(m.statusHistory[scanID], status)
	return nil
}

func (m *memStore) ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[scanID]
	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "scan %s", scanID)
	}
	return scan.Status, nil
}

func (m *memStore) StoreEvent(ctx context.Context, scanID string, ev *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeEventErr != nil {
		return m.storeEventErr
	}
	index, ok := m.eventIndex[scanID]
	if !ok {
		index = make(map[string]bool)
		m.eventIndex[scanID] = index
	}
	if index[ev.Hash()] {
		return nil
	}
	index[ev.Hash()] = true
	m.events[scanID] = append(m.events[scanID], ev)
	return nil
}

func (m *memStore) QueryEvents(ctx context.Context, scanID string, q ports.EventQuery) ([]*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		if err := m.queryErr(q); err != nil {
			return nil, err
		}
	}
	var out []*domain.Event
	for _, ev := range m.events[scanID] {
		if q.Type != "" && ev.Type != q.Type {
			continue
		}
		if q.SourceModule != "" && ev.Module != q.SourceModule {
			continue
		}
		if q.FilterFalsePositives && m.falsePositive[scanID][ev.Hash()] {
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) SummarizeEvents(ctx context.Context, scanID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := make(map[string]int)
	for _, ev := range m.events[scanID] {
		summary[ev.Type]++
	}
	return summary, nil
}

func (m *memStore) SetFalsePositive(ctx context.Context, scanID, eventHash string, fp bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.eventIndex[scanID][eventHash] {
		return errors.Wrapf(errors.ErrNotFound, "event %s", eventHash)
	}
	set, ok := m.falsePositive[scanID]
	if !ok {
		set = make(map[string]bool)
		m.falsePositive[scanID] = set
	}
	if fp {
		set[eventHash] = true
	} else {
		delete(set, eventHash)
	}
	return nil
}

func (m *memStore) CreateCorrelationResult(ctx context.Context, scanID string, result *domain.CorrelationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createCorrErr != nil {
		return m.createCorrErr
	}
	m.correlations[scanID] = append(m.correlations[scanID], result)
	return nil
}

func (m *memStore) Correlations(ctx context.Context, scanID string) ([]*domain.CorrelationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.CorrelationResult(nil), m.correlations[scanID]...), nil
}

func (m *memStore) SummarizeCorrelations(ctx context.Context, scanID string) (map[domain.Risk]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := make(map[domain.Risk]int)
	for _, result := range m.correlations[scanID] {
		summary[result.RuleRisk]++
	}
	return summary, nil
}

func (m *memStore) LogScanEvent(ctx context.Context, scanID, component, level, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanLogs[scanID] = append(m.scanLogs[scanID], ports.ScanLogEntry{
		Generated: time.Now(),
		Component: component,
		Level:     level,
		Message:   message,
	})
	return nil
}

func (m *memStore) ScanLogs(ctx context.Context, scanID string) ([]ports.ScanLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.ScanLogEntry(nil), m.scanLogs[scanID]...), nil
}

func (m *memStore) Reconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
	return nil
}

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// eventsOfType retorna los eventos persistidos de un tipo (thread-safe).
func (m *memStore) eventsOfType(scanID, eventType string) []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Event
	for _, ev := range m.events[scanID] {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// storedCount retorna el total de eventos persistidos de un escaneo.
func (m *memStore) storedCount(scanID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events[scanID])
}

// history retorna la secuencia de estados por los que pasó el escaneo.
func (m *memStore) history(scanID string) []domain.ScanStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScanStatus(nil), m.statusHistory[scanID]...)
}

// fakeModule es un ports.Module guionizable para los tests del scanner.
// Registra los eventos que recibe y delega el comportamiento en onEvent.
type fakeModule struct {
	name     string
	watches  []string
	produces []string
	setupErr error

	// onEvent corre en cada entrega. Recibe el propio módulo para
	// poder emitir a través de su env.
	onEvent func(ctx context.Context, f *fakeModule, ev *domain.Event) error

	mu        sync.Mutex
	env       *ports.ModuleEnv
	listeners []ports.Module
	handled   []*domain.Event
	errored   atomic.Bool
	closes    atomic.Int32
}

func newFakeModule(name string, watches, produces []string) *fakeModule {
	return &fakeModule{name: name, watches: watches, produces: produces}
}

func (f *fakeModule) Name() string             { return f.name }
func (f *fakeModule) WatchedEvents() []string  { return f.watches }
func (f *fakeModule) ProducedEvents() []string { return f.produces }

func (f *fakeModule) Setup(ctx context.Context, env *ports.ModuleEnv, opts map[string]string) error {
	f.mu.Lock()
	f.env = env
	f.mu.Unlock()
	return f.setupErr
}

func (f *fakeModule) HandleEvent(ctx context.Context, ev *domain.Event) error {
	f.mu.Lock()
	f.handled = append(f.handled, ev)
	f.mu.Unlock()
	if f.onEvent != nil {
		return f.onEvent(ctx, f, ev)
	}
	return nil
}

func (f *fakeModule) RegisterListener(m ports.Module) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, m)
}

func (f *fakeModule) Listeners() []ports.Module {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Module(nil), f.listeners...)
}

func (f *fakeModule) ErrorState() bool { return f.errored.Load() }
func (f *fakeModule) TripErrorState() { f.errored.Store(true) }

func (f *fakeModule) Close() error {
	f.closes.Add(1)
	return nil
}

// emit construye un evento del módulo y lo entrega al sink.
func (f *fakeModule) emit(eventType, data string, src *domain.Event, storeOnly bool) {
	f.mu.Lock()
	env := f.env
	f.mu.Unlock()
	ev, err := domain.NewEvent(eventType, data, f.name, src)
	if err != nil {
		panic(err)
	}
	env.Sink.Accept(ev, storeOnly)
}

// handledEvents retorna una copia de los eventos recibidos.
func (f *fakeModule) handledEvents() []*domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Event(nil), f.handled...)
}

// handledOfType cuenta las entregas recibidas de un tipo concreto.
func (f *fakeModule) handledOfType(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.handled {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// moduleSeq garantiza nombres únicos en el registry global, que es
// compartido entre todos los tests del paquete.
var moduleSeq atomic.Int64

// uniqueName genera un nombre de módulo irrepetible para el registry.
func uniqueName(base string) string {
	return fmt.Sprintf("%s-%d", base, moduleSeq.Add(1))
}

// registerFake registra un fakeModule prefabricado en el registry global.
func registerFake(t *testing.T, f *fakeModule) {
	t.Helper()
	meta := ports.ModuleMeta{
		Name:     f.name,
		Summary:  "test module",
		UseCases: []ports.UseCase{ports.UseCasePassive},
		Watches:  f.watches,
		Produces: f.produces,
	}
	factory := func(deps registry.Deps) (ports.Module, error) {
		return f, nil
	}
	if err := registry.Global().Register(f.name, factory, meta); err != nil {
		t.Fatalf("register %s: %v", f.name, err)
	}
}

// newTestPool crea un pool pequeño con shutdown al terminar el test.
func newTestPool(t *testing.T) *threadpool.Pool {
	t.Helper()
	pool := threadpool.New(threadpool.Config{DefaultMax: 4, Logger: logx.NewSilent()})
	t.Cleanup(func() { pool.Shutdown(true) })
	return pool
}

// newTestTarget crea el objetivo estándar de los tests.
func newTestTarget(t *testing.T, value string, targetType domain.TargetType) *domain.Target {
	t.Helper()
	target, err := domain.NewTarget(value, targetType)
	if err != nil {
		t.Fatalf("NewTarget(%s): %v", value, err)
	}
	return target
}

// testDeps retorna unas Deps mínimas válidas para Build.
func testDeps() registry.Deps {
	return registry.Deps{Logger: logx.NewSilent()}
}
