// internal/adapters/storage/sqlite/sqlite_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(memoryPath, logx.NewSilent())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestScan(t *testing.T, store *Store) *domain.Scan {
	t.Helper()
	scan := &domain.Scan{
		ID:         domain.NewScanID(),
		Name:       "perimeter review",
		Target:     "example.com",
		TargetType: domain.TargetTypeInternetName,
		Created:    time.Now(),
		Status:     domain.ScanStatusCreated,
	}
	if err := store.CreateScanInstance(context.Background(), scan); err != nil {
		t.Fatalf("CreateScanInstance: %v", err)
	}
	return scan
}

func TestStoreScanLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scan := newTestScan(t, store)

	loaded, err := store.ScanInstance(ctx, scan.ID)
	if err != nil {
		t.Fatalf("ScanInstance: %v", err)
	}
	if loaded.Name != scan.Name || loaded.Target != scan.Target {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if loaded.TargetType != domain.TargetTypeInternetName {
		t.Errorf("target type = %s", loaded.TargetType)
	}
	if loaded.Status != domain.ScanStatusCreated {
		t.Errorf("status = %s, want CREATED", loaded.Status)
	}
	if !loaded.Started.IsZero() || !loaded.Ended.IsZero() {
		t.Errorf("fresh scan must have zero started/ended: %+v", loaded)
	}

	// Repetir el guid es un error, no una sobreescritura
	if err := store.CreateScanInstance(ctx, scan); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	if err := store.SetScanStatus(ctx, scan.ID, domain.ScanStatusRunning); err != nil {
		t.Fatalf("SetScanStatus RUNNING: %v", err)
	}
	loaded, _ = store.ScanInstance(ctx, scan.ID)
	if loaded.Started.IsZero() {
		t.Error("RUNNING must stamp the start time")
	}
	if !loaded.Ended.IsZero() {
		t.Error("RUNNING must not stamp the end time")
	}

	if err := store.SetScanStatus(ctx, scan.ID, domain.ScanStatusFinished); err != nil {
		t.Fatalf("SetScanStatus FINISHED: %v", err)
	}
	loaded, _ = store.ScanInstance(ctx, scan.ID)
	if loaded.Ended.IsZero() {
		t.Error("a terminal status must stamp the end time")
	}

	status, err := store.ReadScanStatus(ctx, scan.ID)
	if err != nil || status != domain.ScanStatusFinished {
		t.Errorf("ReadScanStatus = %s (%v), want FINISHED", status, err)
	}
}

func TestStoreUnknownScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ScanInstance(ctx, "missing"); !errors.IsNotFound(err) {
		t.Errorf("ScanInstance: expected ErrNotFound, got %v", err)
	}
	if _, err := store.ReadScanStatus(ctx, "missing"); !errors.IsNotFound(err) {
		t.Errorf("ReadScanStatus: expected ErrNotFound, got %v", err)
	}
	if err := store.SetScanStatus(ctx, "missing", domain.ScanStatusRunning); !errors.IsNotFound(err) {
		t.Errorf("SetScanStatus: expected ErrNotFound, got %v", err)
	}
}

func TestStoreListScansNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &domain.Scan{
		ID: domain.NewScanID(), Name: "older", Target: "a.example", TargetType: domain.TargetTypeInternetName,
		Created: time.Now().Add(-time.Hour), Status: domain.ScanStatusFinished,
	}
	newer := &domain.Scan{
		ID: domain.NewScanID(), Name: "newer", Target: "b.example", TargetType: domain.TargetTypeInternetName,
		Created: time.Now(), Status: domain.ScanStatusCreated,
	}
	for _, scan := range []*domain.Scan{older, newer} {
		if err := store.CreateScanInstance(ctx, scan); err != nil {
			t.Fatalf("CreateScanInstance: %v", err)
		}
	}

	scans, err := store.ListScans(ctx)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(scans) != 2 || scans[0].Name != "newer" || scans[1].Name != "older" {
		t.Fatalf("unexpected order: %+v", scans)
	}
}

func TestStoreEventsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scan := newTestScan(t, store)

	root, err := domain.NewRootEvent("example.com", "scanner")
	if err != nil {
		t.Fatal(err)
	}
	child, err := domain.NewEvent("INTERNET_NAME", "www.example.com", "crtsh", root)
	if err != nil {
		t.Fatal(err)
	}
	other, err := domain.NewEvent("IP_ADDRESS", "192.0.2.1", "dnsresolve", child)
	if err != nil {
		t.Fatal(err)
	}

	for _, ev := range []*domain.Event{root, child, other} {
		if err := store.StoreEvent(ctx, scan.ID, ev); err != nil {
			t.Fatalf("StoreEvent(%s): %v", ev.Type, err)
		}
	}
	// Reinsertar el mismo evento es idempotente
	if err := store.StoreEvent(ctx, scan.ID, child); err != nil {
		t.Fatalf("duplicate StoreEvent: %v", err)
	}

	events, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	// Orden de generación preservado
	if events[0].Type != "ROOT" || events[1].Type != "INTERNET_NAME" || events[2].Type != "IP_ADDRESS" {
		t.Errorf("unexpected order: %s %s %s", events[0].Type, events[1].Type, events[2].Type)
	}

	restored := events[1]
	if restored.Hash() != child.Hash() {
		t.Errorf("restored hash %s != original %s", restored.Hash(), child.Hash())
	}
	if restored.Data != child.Data || restored.Module != child.Module {
		t.Errorf("restored fields mismatch: %+v", restored)
	}
	if restored.SourceEventHash != domain.RootEventHash {
		t.Errorf("SourceEventHash = %s, want sentinel", restored.SourceEventHash)
	}
	if restored.Generated.UnixMilli() != child.Generated.UnixMilli() {
		t.Errorf("Generated = %v, want %v", restored.Generated, child.Generated)
	}

	byType, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{Type: "IP_ADDRESS"})
	if err != nil || len(byType) != 1 || byType[0].Data != "192.0.2.1" {
		t.Errorf("type filter: %+v (%v)", byType, err)
	}
	byModule, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{SourceModule: "crtsh"})
	if err != nil || len(byModule) != 1 || byModule[0].Type != "INTERNET_NAME" {
		t.Errorf("module filter: %+v (%v)", byModule, err)
	}
	limited, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Errorf("limit filter: %d events (%v)", len(limited), err)
	}
}

// Cada tipo de objetivo válido debe poder persistir su evento semilla:
// el vocabulario sembrado en tbl_event_types tiene que cubrir todos los
// tipos de target, o la FK de tbl_scan_results rechaza el escaneo.
func TestStoreSeedEventForEveryTargetType(t *testing.T) {
	seeds := []struct {
		targetType domain.TargetType
		value      string
	}{
		{domain.TargetTypeIPAddress, "192.0.2.1"},
		{domain.TargetTypeIPv6Address, "2001:db8::1"},
		{domain.TargetTypeInternetName, "example.com"},
		{domain.TargetTypeEmailAddr, "admin@example.com"},
		{domain.TargetTypeHumanName, `"John Smith"`},
		{domain.TargetTypeUsername, `"jsmith"`},
		{domain.TargetTypeBitcoinAddress, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{domain.TargetTypePhoneNumber, "+34600000000"},
		{domain.TargetTypeNetblockOwner, "192.0.2.0/24"},
		{domain.TargetTypeNetblockV6, "2001:db8::/32"},
		{domain.TargetTypeBGPASOwner, "64496"},
	}

	store := newTestStore(t)
	ctx := context.Background()

	for _, tc := range seeds {
		t.Run(string(tc.targetType), func(t *testing.T) {
			scan := &domain.Scan{
				ID:         domain.NewScanID(),
				Name:       "seed check",
				Target:     tc.value,
				TargetType: tc.targetType,
				Created:    time.Now(),
				Status:     domain.ScanStatusCreated,
			}
			if err := store.CreateScanInstance(ctx, scan); err != nil {
				t.Fatalf("CreateScanInstance: %v", err)
			}

			root, err := domain.NewRootEvent(tc.value, "scanner")
			if err != nil {
				t.Fatal(err)
			}
			seed, err := domain.NewEvent(string(tc.targetType), tc.value, "scanner", root)
			if err != nil {
				t.Fatal(err)
			}
			for _, ev := range []*domain.Event{root, seed} {
				if err := store.StoreEvent(ctx, scan.ID, ev); err != nil {
					t.Fatalf("StoreEvent(%s): %v", ev.Type, err)
				}
			}

			events, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{Type: string(tc.targetType)})
			if err != nil || len(events) != 1 || events[0].Data != tc.value {
				t.Errorf("seed event not persisted: %+v (%v)", events, err)
			}
		})
	}
}

func TestStoreFalsePositives(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scan := newTestScan(t, store)

	root, _ := domain.NewRootEvent("example.com", "scanner")
	child, _ := domain.NewEvent("INTERNET_NAME", "www.example.com", "crtsh", root)
	for _, ev := range []*domain.Event{root, child} {
		if err := store.StoreEvent(ctx, scan.ID, ev); err != nil {
			t.Fatalf("StoreEvent: %v", err)
		}
	}

	if err := store.SetFalsePositive(ctx, scan.ID, child.Hash(), true); err != nil {
		t.Fatalf("SetFalsePositive: %v", err)
	}

	filtered, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{Type: "INTERNET_NAME", FilterFalsePositives: true})
	if err != nil || len(filtered) != 0 {
		t.Errorf("flagged event still visible: %+v (%v)", filtered, err)
	}
	unfiltered, err := store.QueryEvents(ctx, scan.ID, ports.EventQuery{Type: "INTERNET_NAME"})
	if err != nil || len(unfiltered) != 1 || !unfiltered[0].FalsePositive {
		t.Errorf("flag not persisted: %+v (%v)", unfiltered, err)
	}

	// Desmarcar lo devuelve al conjunto visible
	if err := store.SetFalsePositive(ctx, scan.ID, child.Hash(), false); err != nil {
		t.Fatalf("SetFalsePositive(false): %v", err)
	}
	filtered, _ = store.QueryEvents(ctx, scan.ID, ports.EventQuery{Type: "INTERNET_NAME", FilterFalsePositives: true})
	if len(filtered) != 1 {
		t.Errorf("unflagged event missing: %+v", filtered)
	}

	if err := store.SetFalsePositive(ctx, scan.ID, "deadbeef", true); !errors.IsNotFound(err) {
		t.Errorf("expected ErrNotFound for unknown hash, got %v", err)
	}
}

func TestStoreSummarizeEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scan := newTestScan(t, store)

	root, _ := domain.NewRootEvent("example.com", "scanner")
	a, _ := domain.NewEvent("INTERNET_NAME", "www.example.com", "crtsh", root)
	b, _ := domain.NewEvent("INTERNET_NAME", "mail.example.com", "crtsh", root)
	for _, ev := range []*domain.Event{root, a, b} {
		if err := store.StoreEvent(ctx, scan.ID, ev); err != nil {
			t.Fatalf("StoreEvent: %v", err)
		}
	}

	summary, err := store.SummarizeEvents(ctx, scan.ID)
	if err != nil {
		t.Fatalf("SummarizeEvents: %v", err)
	}
	if summary["INTERNET_NAME"] != 2 || summary["ROOT"] != 1 {
		t.Errorf("summary = %v", summary)
	}
}

func TestStoreCorrelations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scan := newTestScan(t, store)

	result := domain.NewCorrelationResult("exposed_hosts", "Hosts expuestos",
		domain.RiskLow, "2 hosts expuestos", []string{"hash-a", "hash-b"})
	if err := store.CreateCorrelationResult(ctx, scan.ID, result); err != nil {
		t.Fatalf("CreateCorrelationResult: %v", err)
	}

	results, err := store.Correlations(ctx, scan.ID)
	if err != nil {
		t.Fatalf("Correlations: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	got := results[0]
	if got.RuleID != "exposed_hosts" || got.RuleRisk != domain.RiskLow || got.Title != "2 hosts expuestos" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Events) != 2 || got.Events[0] != "hash-a" || got.Events[1] != "hash-b" {
		t.Errorf("contributing events = %v", got.Events)
	}

	summary, err := store.SummarizeCorrelations(ctx, scan.ID)
	if err != nil || summary[domain.RiskLow] != 1 {
		t.Errorf("summary = %v (%v)", summary, err)
	}
}

func TestStoreScanLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scan := newTestScan(t, store)

	if err := store.LogScanEvent(ctx, scan.ID, "scanner", "info", "scan running"); err != nil {
		t.Fatalf("LogScanEvent: %v", err)
	}
	if err := store.LogScanEvent(ctx, scan.ID, "crtsh", "error", "api quota exceeded"); err != nil {
		t.Fatalf("LogScanEvent: %v", err)
	}

	entries, err := store.ScanLogs(ctx, scan.ID)
	if err != nil {
		t.Fatalf("ScanLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Component != "scanner" || entries[0].Level != "info" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Component != "crtsh" || entries[1].Message != "api quota exceeded" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

// Una base en fichero sobrevive al cierre y a la reconexión.
func TestStoreFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "noctua.db")
	ctx := context.Background()

	store, err := New(path, logx.NewSilent())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scan := newTestScan(t, store)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(path, logx.NewSilent())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.ScanInstance(ctx, scan.ID)
	if err != nil {
		t.Fatalf("ScanInstance after reopen: %v", err)
	}
	if loaded.Name != scan.Name {
		t.Errorf("scan did not survive reopen: %+v", loaded)
	}

	if err := reopened.Reconnect(); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if _, err := reopened.ScanInstance(ctx, scan.ID); err != nil {
		t.Errorf("scan lost after reconnect: %v", err)
	}
}
