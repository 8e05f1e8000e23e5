// internal/modules/common/mocks_test.go
package common

import (
	"context"
	"sync"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/logx"
)

// mockSink records every event handed to the orchestrator sink.
type mockSink struct {
	mu       sync.Mutex
	accepted []acceptedEvent
}

type acceptedEvent struct {
	ev        *domain.Event
	storeOnly bool
}

func newMockSink() *mockSink {
	return &mockSink{}
}

func (m *mockSink) Accept(ev *domain.Event, storeOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted = append(m.accepted, acceptedEvent{ev: ev, storeOnly: storeOnly})
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accepted)
}

func (m *mockSink) last() (acceptedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.accepted) == 0 {
		return acceptedEvent{}, false
	}
	return m.accepted[len(m.accepted)-1], true
}

// mockStatus serves a configurable persisted scan status.
type mockStatus struct {
	mu     sync.Mutex
	status domain.ScanStatus
	err    error
	calls  int
}

func newMockStatus(status domain.ScanStatus) *mockStatus {
	return &mockStatus{status: status}
}

func (m *mockStatus) ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.status, m.err
}

func (m *mockStatus) set(status domain.ScanStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// stubModule is a minimal module built on Base, for listener wiring tests.
type stubModule struct {
	*Base
}

func newStubModule(name string) *stubModule {
	return &stubModule{Base: NewBase(name)}
}

func (s *stubModule) HandleEvent(ctx context.Context, ev *domain.Event) error {
	return nil
}

// newTestEnv builds a scan environment around the given sink and status.
func newTestEnv(sink ports.EventSink, status ports.StatusReader) *ports.ModuleEnv {
	target, err := domain.NewTarget("example.com", domain.TargetTypeInternetName)
	if err != nil {
		panic(err)
	}
	return &ports.ModuleEnv{
		ScanID: "scan-test",
		Target: target,
		Arena:  domain.NewEventArena(),
		Sink:   sink,
		Status: status,
		Stop:   &ports.StopFlag{},
		Logger: logx.NewSilent(),
	}
}
