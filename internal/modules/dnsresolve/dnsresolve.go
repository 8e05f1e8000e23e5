// internal/modules/dnsresolve/dnsresolve.go
package dnsresolve

import (
	"context"
	"net"
	"strings"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/modules/common"
	"noctua/internal/platform/cache"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/validator"
)

const moduleName = "dnsresolve"

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 10 * time.Minute
)

// Auto-registro del módulo al importar el package
func init() {
	if err := registry.Global().Register(
		moduleName,
		func(deps registry.Deps) (ports.Module, error) {
			return New(deps), nil
		},
		ports.ModuleMeta{
			Name:    moduleName,
			Summary: "Resolves hostnames to IP addresses and back via DNS",
			UseCases: []ports.UseCase{
				ports.UseCasePassive,
				ports.UseCaseFootprint,
				ports.UseCaseInvestigate,
			},
			Watches: []string{
				domain.EventTypeInternetName,
				domain.EventTypeInternetNameUnresolved,
				domain.EventTypeIPAddress,
			},
			Produces: []string{
				domain.EventTypeIPAddress,
				domain.EventTypeIPv6Address,
				domain.EventTypeInternetName,
				domain.EventTypeInternetNameUnresolved,
			},
		},
	); err != nil {
		logx.New().Warn("failed to register dnsresolve module", "error", err.Error())
	}
}

// DNSResolve resuelve nombres descubiertos a direcciones IP (A/AAAA) y
// direcciones a nombres (PTR). Las identidades resueltas enriquecen el
// registro de aliases del objetivo, de modo que el resto de módulos
// pueda decidir pertenencia sobre ellas.
type DNSResolve struct {
	*common.Base

	resolver *net.Resolver
	cache    cache.Cache
	timeout  time.Duration
	cacheTTL time.Duration
}

// New crea una instancia del módulo con el resolver de la plataforma.
func New(deps registry.Deps) *DNSResolve {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	return &DNSResolve{
		Base:     common.NewBase(moduleName),
		resolver: resolver,
		cache:    deps.Cache,
		timeout:  defaultTimeout,
		cacheTTL: defaultCacheTTL,
	}
}

// WatchedEvents retorna los tipos que el módulo consume.
func (m *DNSResolve) WatchedEvents() []string {
	return []string{
		domain.EventTypeInternetName,
		domain.EventTypeInternetNameUnresolved,
		domain.EventTypeIPAddress,
	}
}

// ProducedEvents retorna los tipos que el módulo emite.
func (m *DNSResolve) ProducedEvents() []string {
	return []string{
		domain.EventTypeIPAddress,
		domain.EventTypeIPv6Address,
		domain.EventTypeInternetName,
		domain.EventTypeInternetNameUnresolved,
	}
}

// Setup prepara el módulo para un escaneo y aplica las opciones de usuario.
func (m *DNSResolve) Setup(ctx context.Context, env *ports.ModuleEnv, opts map[string]string) error {
	if err := m.Base.Setup(ctx, env, opts); err != nil {
		return err
	}

	m.timeout = registry.GetDurationOption(opts, "timeout", m.timeout)
	m.cacheTTL = registry.GetDurationOption(opts, "cache_ttl", m.cacheTTL)

	if err := registry.ValidatePositiveDuration("timeout", m.timeout); err != nil {
		return errors.Wrap(errors.ErrValidation, err.Error())
	}
	return nil
}

// HandleEvent procesa un evento entregado por el orquestador.
func (m *DNSResolve) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if m.CheckForStop(ctx) {
		return nil
	}

	switch ev.Type {
	case domain.EventTypeInternetName, domain.EventTypeInternetNameUnresolved:
		return m.resolveName(ctx, ev)
	case domain.EventTypeIPAddress:
		return m.resolveAddress(ctx, ev)
	default:
		return nil
	}
}

// resolveName resuelve un nombre de host a sus direcciones. Un nombre
// sin resolución se re-emite como no resuelto; uno no resuelto que
// ahora resuelve vuelve a emitirse como nombre vivo.
func (m *DNSResolve) resolveName(ctx context.Context, ev *domain.Event) error {
	host := strings.ToLower(strings.TrimSpace(ev.Data))
	if host == "" || validator.IsIP(host) {
		return nil
	}

	addrs, err := m.lookupHost(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			if ev.Type == domain.EventTypeInternetName {
				m.EmitWithConfidence(ctx, domain.EventTypeInternetNameUnresolved, host, domain.ConfidenceLow, ev)
			}
			return nil
		}
		// Fallo transitorio del resolver: no se puede afirmar que el
		// nombre no exista, así que no se marca como no resuelto.
		m.Logger().Warn("dns lookup failed", "host", host, "error", err.Error())
		return nil
	}

	env := m.Env()
	for _, addr := range addrs {
		if m.CheckForStop(ctx) {
			return nil
		}

		eventType := domain.EventTypeIPAddress
		if validator.IsIPv6(addr) {
			eventType = domain.EventTypeIPv6Address
		}
		if env != nil && env.Target != nil {
			env.Target.SetAlias(addr, eventType)
		}
		// La resolución es verificación directa de que el dato está vivo.
		m.EmitWithConfidence(ctx, eventType, addr, domain.ConfidenceVerified, ev)
	}

	if ev.Type == domain.EventTypeInternetNameUnresolved && len(addrs) > 0 {
		m.EmitWithConfidence(ctx, domain.EventTypeInternetName, host, domain.ConfidenceVerified, ev)
	}
	return nil
}

// resolveAddress resuelve una dirección IP a sus nombres PTR. Solo los
// nombres que pertenecen al objetivo se emiten y enriquecen el alias.
func (m *DNSResolve) resolveAddress(ctx context.Context, ev *domain.Event) error {
	addr := strings.TrimSpace(ev.Data)
	if !validator.IsIP(addr) {
		return nil
	}

	names, err := m.lookupAddr(ctx, addr)
	if err != nil {
		m.Logger().Debug("reverse lookup failed", "addr", addr, "error", err.Error())
		return nil
	}

	env := m.Env()
	for _, name := range names {
		if m.CheckForStop(ctx) {
			return nil
		}

		name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
		if name == "" {
			continue
		}
		if env == nil || env.Target == nil || !env.Target.Matches(name, false, true) {
			continue
		}

		env.Target.SetAlias(name, domain.EventTypeInternetName)
		m.EmitWithConfidence(ctx, domain.EventTypeInternetName, name, domain.ConfidenceVerified, ev)
	}
	return nil
}

// lookupHost resuelve A/AAAA con timeout propio y cachea aciertos.
func (m *DNSResolve) lookupHost(ctx context.Context, host string) ([]string, error) {
	key := "dns:host:" + host
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			if addrs, ok := v.([]string); ok {
				return addrs, nil
			}
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	addrs, err := m.resolver.LookupHost(lookupCtx, host)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Set(key, addrs, m.cacheTTL)
	}
	return addrs, nil
}

// lookupAddr resuelve PTR con timeout propio y cachea aciertos.
func (m *DNSResolve) lookupAddr(ctx context.Context, addr string) ([]string, error) {
	key := "dns:addr:" + addr
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			if names, ok := v.([]string); ok {
				return names, nil
			}
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	names, err := m.resolver.LookupAddr(lookupCtx, addr)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Set(key, names, m.cacheTTL)
	}
	return names, nil
}
