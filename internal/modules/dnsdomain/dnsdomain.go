// internal/modules/dnsdomain/dnsdomain.go
package dnsdomain

import (
	"context"
	"strings"

	"golang.org/x/net/publicsuffix"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/modules/common"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/validator"
)

const moduleName = "dnsdomain"

// Auto-registro del módulo al importar el package
func init() {
	if err := registry.Global().Register(
		moduleName,
		func(deps registry.Deps) (ports.Module, error) {
			return New(deps), nil
		},
		ports.ModuleMeta{
			Name:    moduleName,
			Summary: "Derives registrable domains from discovered hostnames",
			UseCases: []ports.UseCase{
				ports.UseCasePassive,
				ports.UseCaseFootprint,
				ports.UseCaseInvestigate,
			},
			Watches:  []string{domain.EventTypeInternetName},
			Produces: []string{domain.EventTypeDomainName},
		},
	); err != nil {
		logx.New().Warn("failed to register dnsdomain module", "error", err.Error())
	}
}

// DNSDomain deriva el dominio registrable (eTLD+1, según la lista de
// sufijos públicos) de cada nombre de host descubierto. Los dominios
// fuera del ámbito del objetivo se descartan.
type DNSDomain struct {
	*common.Base
}

// New crea una instancia del módulo.
func New(deps registry.Deps) *DNSDomain {
	return &DNSDomain{
		Base: common.NewBase(moduleName),
	}
}

// WatchedEvents retorna los tipos que el módulo consume.
func (m *DNSDomain) WatchedEvents() []string {
	return []string{domain.EventTypeInternetName}
}

// ProducedEvents retorna los tipos que el módulo emite.
func (m *DNSDomain) ProducedEvents() []string {
	return []string{domain.EventTypeDomainName}
}

// HandleEvent procesa un nombre de host y emite su dominio registrable.
func (m *DNSDomain) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if m.CheckForStop(ctx) {
		return nil
	}
	if ev.Type != domain.EventTypeInternetName {
		return nil
	}

	host := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(ev.Data), "."))
	if host == "" || validator.IsIP(host) {
		return nil
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Hosts sin dominio registrable (sufijos públicos, nombres
		// internos) no producen nada.
		m.Logger().Debug("no registrable domain for host", "host", host, "error", err.Error())
		return nil
	}

	env := m.Env()
	if env != nil && env.Target != nil && !env.Target.Matches(registrable, true, false) {
		m.Logger().Debug("registrable domain out of scope", "domain", registrable)
		return nil
	}

	// Derivado por la lista de sufijos públicos, no observado: alta
	// confianza pero no verificado.
	m.EmitWithConfidence(ctx, domain.EventTypeDomainName, registrable, domain.ConfidenceHigh, ev)
	return nil
}
