// internal/modules/dnsresolve/mocks_test.go
package dnsresolve

import (
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

// byType returns the accepted events of the given type.
func (m *mockSink) byType(eventType string) []acceptedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []acceptedEvent
	for _, a := range m.accepted {
		if a.ev.Type == eventType {
			out = append(out, a)
		}
	}
	return out
}

// newTestEnv builds a scan environment around the given sink, targeting
// example.com.
func newTestEnv(sink ports.EventSink) *ports.ModuleEnv {
	target, err := domain.NewTarget("example.com", domain.TargetTypeInternetName)
	if err != nil {
		panic(err)
	}
	return &ports.ModuleEnv{
		ScanID: "scan-test",
		Target: target,
		Arena:  domain.NewEventArena(),
		Sink:   sink,
		Stop:   &ports.StopFlag{},
		Logger: logx.NewSilent(),
	}
}
