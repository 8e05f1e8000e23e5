package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/logx"
	"noctua/internal/testutil"
)

var _ ports.Storage = (*RetryingStore)(nil)

// fakeStore es un ports.Storage programable: cada método consume una
// cola de errores por nombre y cuenta sus invocaciones.
type fakeStore struct {
	mu           sync.Mutex
	errs         map[string][]error
	calls        map[string]int
	reconnectErr error
	reconnects   int
}

var _ ports.Storage = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		errs:  make(map[string][]error),
		calls: make(map[string]int),
	}
}

// script encola errores para un método; agotada la cola, el método
// vuelve a responder nil.
func (f *fakeStore) script(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = append(f.errs[method], errs...)
}

func (f *fakeStore) step(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	queue := f.errs[method]
	if len(queue) == 0 {
		return nil
	}
	f.errs[method] = queue[1:]
	return queue[0]
}

func (f *fakeStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) CreateScanInstance(ctx context.Context, scan *domain.Scan) error {
	return f.step("CreateScanInstance")
}

func (f *fakeStore) ScanInstance(ctx context.Context, scanID string) (*domain.Scan, error) {
	if err := f.step("ScanInstance"); err != nil {
		return nil, err
	}
	return &domain.Scan{ID: scanID, Name: "fake scan", Status: domain.ScanStatusRunning}, nil
}

func (f *fakeStore) ListScans(ctx context.Context) ([]*domain.Scan, error) {
	if err := f.step("ListScans"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeStore) SetScanStatus(ctx context.Context, scanID string, status domain.ScanStatus) error {
	return f.step("SetScanStatus")
}

func (f *fakeStore) ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error) {
	if err := f.step("ReadScanStatus"); err != nil {
		return "", err
	}
	return domain.ScanStatusRunning, nil
}

func (f *fakeStore) StoreEvent(ctx context.Context, scanID string, ev *domain.Event) error {
	return f.step("StoreEvent")
}

func (f *fakeStore) QueryEvents(ctx context.Context, scanID string, q ports.EventQuery) ([]*domain.Event, error) {
	if err := f.step("QueryEvents"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeStore) SummarizeEvents(ctx context.Context, scanID string) (map[string]int, error) {
	if err := f.step("SummarizeEvents"); err != nil {
		return nil, err
	}
	return map[string]int{"INTERNET_NAME": 2}, nil
}

func (f *fakeStore) SetFalsePositive(ctx context.Context, scanID, eventHash string, fp bool) error {
	return f.step("SetFalsePositive")
}

func (f *fakeStore) CreateCorrelationResult(ctx context.Context, scanID string, result *domain.CorrelationResult) error {
	return f.step("CreateCorrelationResult")
}

func (f *fakeStore) Correlations(ctx context.Context, scanID string) ([]*domain.CorrelationResult, error) {
	if err := f.step("Correlations"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeStore) SummarizeCorrelations(ctx context.Context, scanID string) (map[domain.Risk]int, error) {
	if err := f.step("SummarizeCorrelations"); err != nil {
		return nil, err
	}
	return map[domain.Risk]int{}, nil
}

func (f *fakeStore) LogScanEvent(ctx context.Context, scanID, component, level, message string) error {
	return f.step("LogScanEvent")
}

func (f *fakeStore) ScanLogs(ctx context.Context, scanID string) ([]ports.ScanLogEntry, error) {
	if err := f.step("ScanLogs"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeStore) Reconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return f.reconnectErr
}

func (f *fakeStore) Close() error {
	return f.step("Close")
}

func testEvent(t *testing.T) *domain.Event {
	t.Helper()
	ev, err := domain.NewRootEvent("example.com", "noctua")
	testutil.AssertNoError(t, err, "NewRootEvent should not fail")
	return ev
}

func TestRetryingStore_WriteSucceedsFirstTry(t *testing.T) {
	fake := newFakeStore()
	store := NewRetryingStore(fake, logx.New())

	err := store.StoreEvent(context.Background(), "scan-1", testEvent(t))

	testutil.AssertNoError(t, err, "first try should succeed")
	testutil.AssertEqual(t, fake.count("StoreEvent"), 1, "inner called once")
	testutil.AssertEqual(t, fake.reconnects, 0, "no reconnect on success")
}

func TestRetryingStore_WriteRecoversAfterReconnect(t *testing.T) {
	fake := newFakeStore()
	fake.script("StoreEvent", errors.New("database is locked"))
	store := NewRetryingStore(fake, logx.New())

	err := store.StoreEvent(context.Background(), "scan-1", testEvent(t))

	testutil.AssertNoError(t, err, "retry after reconnect should succeed")
	testutil.AssertEqual(t, fake.count("StoreEvent"), 2, "inner called twice")
	testutil.AssertEqual(t, fake.reconnects, 1, "exactly one reconnect")
}

func TestRetryingStore_ReconnectFailureReturnsOriginalError(t *testing.T) {
	fake := newFakeStore()
	original := errors.New("disk I/O error")
	fake.script("StoreEvent", original)
	fake.reconnectErr = errors.New("unable to open database file")
	store := NewRetryingStore(fake, logx.New())

	err := store.StoreEvent(context.Background(), "scan-1", testEvent(t))

	testutil.AssertTrue(t, errors.Is(err, original), "caller sees the write error, not the reconnect error")
	testutil.AssertEqual(t, fake.count("StoreEvent"), 1, "no second attempt without reconnect")
}

func TestRetryingStore_SecondFailurePropagates(t *testing.T) {
	fake := newFakeStore()
	second := errors.New("still broken")
	fake.script("StoreEvent", errors.New("first failure"), second)
	store := NewRetryingStore(fake, logx.New())

	err := store.StoreEvent(context.Background(), "scan-1", testEvent(t))

	testutil.AssertTrue(t, errors.Is(err, second), "second failure reaches the caller")
	testutil.AssertEqual(t, fake.count("StoreEvent"), 2, "exactly one retry")
	testutil.AssertEqual(t, fake.reconnects, 1, "exactly one reconnect")
}

func TestRetryingStore_NoRetryOnCancelledContext(t *testing.T) {
	fake := newFakeStore()
	original := errors.New("write aborted")
	fake.script("StoreEvent", original)
	store := NewRetryingStore(fake, logx.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.StoreEvent(ctx, "scan-1", testEvent(t))

	testutil.AssertTrue(t, errors.Is(err, original), "original error returned")
	testutil.AssertEqual(t, fake.count("StoreEvent"), 1, "no retry after cancellation")
	testutil.AssertEqual(t, fake.reconnects, 0, "no reconnect after cancellation")
}

func TestRetryingStore_AllRequiredWritesRetry(t *testing.T) {
	scan := &domain.Scan{ID: "scan-1", Name: "retry probe", Status: domain.ScanStatusCreated}
	corr := domain.NewCorrelationResult("rule", "Rule", domain.RiskInfo, "title", []string{"abc"})

	tests := []struct {
		name   string
		method string
		op     func(s *RetryingStore) error
	}{
		{
			name:   "CreateScanInstance",
			method: "CreateScanInstance",
			op: func(s *RetryingStore) error {
				return s.CreateScanInstance(context.Background(), scan)
			},
		},
		{
			name:   "SetScanStatus",
			method: "SetScanStatus",
			op: func(s *RetryingStore) error {
				return s.SetScanStatus(context.Background(), "scan-1", domain.ScanStatusRunning)
			},
		},
		{
			name:   "SetFalsePositive",
			method: "SetFalsePositive",
			op: func(s *RetryingStore) error {
				return s.SetFalsePositive(context.Background(), "scan-1", "abc", true)
			},
		},
		{
			name:   "CreateCorrelationResult",
			method: "CreateCorrelationResult",
			op: func(s *RetryingStore) error {
				return s.CreateCorrelationResult(context.Background(), "scan-1", corr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeStore()
			fake.script(tt.method, errors.New("transient failure"))
			store := NewRetryingStore(fake, logx.New())

			testutil.AssertNoError(t, tt.op(store), "write should recover after reconnect")
			testutil.AssertEqual(t, fake.count(tt.method), 2, "inner called twice")
			testutil.AssertEqual(t, fake.reconnects, 1, "exactly one reconnect")
		})
	}
}

func TestRetryingStore_ReadsPassThrough(t *testing.T) {
	t.Run("successful read", func(t *testing.T) {
		fake := newFakeStore()
		store := NewRetryingStore(fake, logx.New())

		scan, err := store.ScanInstance(context.Background(), "scan-1")

		testutil.AssertNoError(t, err, "read should succeed")
		testutil.AssertEqual(t, scan.ID, "scan-1", "scan comes from the inner store")
	})

	t.Run("read errors propagate without retry", func(t *testing.T) {
		fake := newFakeStore()
		fake.script("QueryEvents", errors.New("query failed"))
		store := NewRetryingStore(fake, logx.New())

		_, err := store.QueryEvents(context.Background(), "scan-1", ports.EventQuery{})

		testutil.AssertError(t, err, "read error reaches the caller")
		testutil.AssertEqual(t, fake.count("QueryEvents"), 1, "reads are never retried")
		testutil.AssertEqual(t, fake.reconnects, 0, "reads never reconnect")
	})
}

func TestRetryingStore_LogWritesAbsorbFailures(t *testing.T) {
	fake := newFakeStore()
	fake.script("LogScanEvent", errors.New("log table gone"))
	store := NewRetryingStore(fake, logx.New())

	err := store.LogScanEvent(context.Background(), "scan-1", "scanner", "INFO", "probe")

	testutil.AssertNoError(t, err, "log failures never reach the caller")
	testutil.AssertEqual(t, fake.count("LogScanEvent"), 1, "inner called once")
	testutil.AssertEqual(t, fake.reconnects, 0, "log writes never reconnect")
}

func TestRetryingStore_LogBreakerShedsAfterRepeatedFailures(t *testing.T) {
	fake := newFakeStore()
	fake.script("LogScanEvent",
		errors.New("fail 1"),
		errors.New("fail 2"),
		errors.New("fail 3"),
	)
	store := NewRetryingStore(fake, logx.New())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, store.LogScanEvent(ctx, "scan-1", "scanner", "INFO", "probe"), "absorbed")
	}

	// Breaker abierto: las líneas siguientes se descartan sin tocar
	// el almacenamiento.
	testutil.AssertNoError(t, store.LogScanEvent(ctx, "scan-1", "scanner", "INFO", "dropped"), "shed silently")
	testutil.AssertEqual(t, fake.count("LogScanEvent"), 3, "inner not called with the breaker open")
}

func TestRetryingStore_ReconnectResetsLogBreaker(t *testing.T) {
	fake := newFakeStore()
	fake.script("LogScanEvent",
		errors.New("fail 1"),
		errors.New("fail 2"),
		errors.New("fail 3"),
	)
	store := NewRetryingStore(fake, logx.New())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = store.LogScanEvent(ctx, "scan-1", "scanner", "INFO", "probe")
	}
	testutil.AssertEqual(t, fake.count("LogScanEvent"), 3, "breaker open after three failures")

	testutil.AssertNoError(t, store.Reconnect(), "reconnect should succeed")

	_ = store.LogScanEvent(ctx, "scan-1", "scanner", "INFO", "after recovery")
	testutil.AssertEqual(t, fake.count("LogScanEvent"), 4, "log writes flow again after reconnect")
}

func TestRetryingStore_RequiredWriteRecoveryResetsLogBreaker(t *testing.T) {
	fake := newFakeStore()
	fake.script("LogScanEvent",
		errors.New("fail 1"),
		errors.New("fail 2"),
		errors.New("fail 3"),
	)
	fake.script("StoreEvent", errors.New("transient failure"))
	store := NewRetryingStore(fake, logx.New())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = store.LogScanEvent(ctx, "scan-1", "scanner", "INFO", "probe")
	}

	// La reconexión disparada por una escritura obligatoria también
	// reabre el log.
	testutil.AssertNoError(t, store.StoreEvent(ctx, "scan-1", testEvent(t)), "required write recovers")

	_ = store.LogScanEvent(ctx, "scan-1", "scanner", "INFO", "after recovery")
	testutil.AssertEqual(t, fake.count("LogScanEvent"), 4, "log writes flow again")
}

func TestRetryingStore_CloseDelegates(t *testing.T) {
	fake := newFakeStore()
	store := NewRetryingStore(fake, logx.New())

	testutil.AssertNoError(t, store.Close(), "close should succeed")
	testutil.AssertEqual(t, fake.count("Close"), 1, "inner closed once")
}
