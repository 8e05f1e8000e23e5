// internal/modules/dnsdomain/dnsdomain_test.go
package dnsdomain

import (
	"context"
	"sync"
	"testing"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/testutil"
)

type mockSink struct {
	mu       sync.Mutex
	accepted []*domain.Event
}

func (m *mockSink) Accept(ev *domain.Event, storeOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted = append(m.accepted, ev)
}

func (m *mockSink) all() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Event, len(m.accepted))
	copy(out, m.accepted)
	return out
}

func newTestModule(t *testing.T) (*DNSDomain, *mockSink, *ports.ModuleEnv) {
	t.Helper()

	target, err := domain.NewTarget("example.com", domain.TargetTypeInternetName)
	testutil.AssertNoError(t, err, "target should build")

	sink := &mockSink{}
	env := &ports.ModuleEnv{
		ScanID: "scan-test",
		Target: target,
		Arena:  domain.NewEventArena(),
		Sink:   sink,
		Stop:   &ports.StopFlag{},
		Logger: logx.NewSilent(),
	}

	m := New(registry.Deps{Logger: logx.NewSilent()})
	testutil.AssertNoError(t, m.Setup(context.Background(), env, nil), "setup should succeed")
	return m, sink, env
}

func newHostEvent(t *testing.T, env *ports.ModuleEnv, host string) *domain.Event {
	t.Helper()

	root, err := domain.NewRootEvent("example.com", "scanner")
	testutil.AssertNoError(t, err, "root event should build")
	env.Arena.AddIfAbsent(root)

	ev, err := domain.NewEvent(domain.EventTypeInternetName, host, "seed", root)
	testutil.AssertNoError(t, err, "host event should build")
	env.Arena.AddIfAbsent(ev)
	return ev
}

func TestDNSDomain_Registration(t *testing.T) {
	testutil.AssertTrue(t, registry.Global().IsRegistered(moduleName), "module should self-register")

	meta, ok := registry.Global().GetMetadata(moduleName)
	testutil.AssertTrue(t, ok, "metadata should be available")
	testutil.AssertContains(t, meta.Produces, domain.EventTypeDomainName, "metadata should declare DOMAIN_NAME")
}

func TestDNSDomain_DerivesRegistrableDomain(t *testing.T) {
	m, sink, env := newTestModule(t)

	ev := newHostEvent(t, env, "deep.www.example.com")
	testutil.AssertNoError(t, m.HandleEvent(context.Background(), ev), "handler should not fail")

	got := sink.all()
	testutil.AssertLen(t, got, 1, "one domain should be emitted")
	testutil.AssertEqual(t, got[0].Type, domain.EventTypeDomainName, "emission should be a domain")
	testutil.AssertEqual(t, got[0].Data, "example.com", "eTLD+1 should be derived")
	testutil.AssertEqual(t, got[0].Module, moduleName, "emission should be attributed to the module")
}

func TestDNSDomain_HostEqualToDomain(t *testing.T) {
	m, sink, env := newTestModule(t)

	ev := newHostEvent(t, env, "example.com")
	testutil.AssertNoError(t, m.HandleEvent(context.Background(), ev), "handler should not fail")

	got := sink.all()
	testutil.AssertLen(t, got, 1, "the apex host still yields its domain")
	testutil.AssertEqual(t, got[0].Data, "example.com", "apex should map to itself")
}

func TestDNSDomain_DropsOutOfScopeDomains(t *testing.T) {
	m, sink, env := newTestModule(t)

	ev := newHostEvent(t, env, "www.other.org")
	testutil.AssertNoError(t, m.HandleEvent(context.Background(), ev), "handler should not fail")

	testutil.AssertLen(t, sink.all(), 0, "a foreign registrable domain must be dropped")
}

func TestDNSDomain_SkipsUnderivableHosts(t *testing.T) {
	m, sink, env := newTestModule(t)

	for _, host := range []string{"localhost", "192.0.2.10", "com"} {
		ev := newHostEvent(t, env, host)
		testutil.AssertNoError(t, m.HandleEvent(context.Background(), ev), "handler should not fail")
	}

	testutil.AssertLen(t, sink.all(), 0, "hosts without a registrable domain yield nothing")
}

func TestDNSDomain_IgnoresOtherTypes(t *testing.T) {
	m, sink, env := newTestModule(t)

	root, err := domain.NewRootEvent("example.com", "scanner")
	testutil.AssertNoError(t, err, "root event should build")
	env.Arena.AddIfAbsent(root)

	ip, err := domain.NewEvent(domain.EventTypeIPAddress, "192.0.2.10", "seed", root)
	testutil.AssertNoError(t, err, "ip event should build")

	testutil.AssertNoError(t, m.HandleEvent(context.Background(), ip), "handler should not fail")
	testutil.AssertLen(t, sink.all(), 0, "non-hostname events are ignored")
}
