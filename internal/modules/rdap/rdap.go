// internal/modules/rdap/rdap.go
package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/modules/common"
	"noctua/internal/platform/cache"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/httpclient"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
)

const moduleName = "rdap"

const (
	// bootstrapURL usa el servicio rdap.org, que redirige al servidor
	// RDAP autoritativo del TLD correspondiente.
	bootstrapURL = "https://rdap.org/domain/%s"

	// Los datos de registro cambian muy despacio.
	cacheTTL = 24 * time.Hour
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
			Summary: "Domain registration data via the RDAP protocol",
			UseCases: []ports.UseCase{
				ports.UseCasePassive,
				ports.UseCaseFootprint,
				ports.UseCaseInvestigate,
			},
			Watches: []string{domain.EventTypeDomainName},
			Produces: []string{
				domain.EventTypeDomainRegistrar,
				domain.EventTypeProviderDNS,
				domain.EventTypeRawRIRData,
			},
		},
	); err != nil {
		logx.New().Warn("failed to register rdap module", "error", err.Error())
	}
}

// RDAP consulta datos de registro de dominios (el sucesor estructurado
// de WHOIS): registrador, nameservers delegados y fechas de ciclo de vida.
type RDAP struct {
	*common.Base

	client *httpclient.Client
	cache  cache.Cache
}

// New crea una instancia del módulo. Los límites son conservadores: cada
// TLD opera su propio servidor RDAP y algunos son muy estrictos.
func New(deps registry.Deps) *RDAP {
	cfg := deps.HTTP
	cfg.Timeout = 30 * time.Second
	cfg.MaxRetries = 3
	cfg.RetryBackoff = 1 * time.Second
	cfg.RateLimit = 5.0
	cfg.RateLimitBurst = 2

	return &RDAP{
		Base:   common.NewBase(moduleName),
		client: httpclient.New(cfg, deps.Logger),
		cache:  deps.Cache,
	}
}

// WatchedEvents retorna los tipos que el módulo consume.
func (m *RDAP) WatchedEvents() []string {
	return []string{domain.EventTypeDomainName}
}

// ProducedEvents retorna los tipos que el módulo emite.
func (m *RDAP) ProducedEvents() []string {
	return []string{
		domain.EventTypeDomainRegistrar,
		domain.EventTypeProviderDNS,
		domain.EventTypeRawRIRData,
	}
}

// HandleEvent consulta el registro RDAP de cada dominio descubierto.
func (m *RDAP) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if m.CheckForStop(ctx) {
		return nil
	}
	if ev.Type != domain.EventTypeDomainName {
		return nil
	}

	domainName := strings.ToLower(strings.TrimSpace(ev.Data))
	if domainName == "" {
		return nil
	}

	body, err := m.fetchRegistration(ctx, domainName)
	if err != nil {
		if errors.IsNotFound(err) {
			// TLD sin servidor RDAP, o dominio sin registro público
			m.Logger().Debug("no RDAP data", "domain", domainName)
			return nil
		}
		return errors.Wrapf(err, "RDAP query for %s failed", domainName)
	}

	var reg rdapResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		m.Logger().Warn("unparseable RDAP response", "domain", domainName, "error", err.Error())
		return nil
	}

	if reg.LDHName != "" && !strings.EqualFold(reg.LDHName, domainName) {
		// Pasa con IDNs y con redirecciones del bootstrap
		m.Logger().Debug("RDAP ldhName differs from query", "domain", domainName, "ldhName", reg.LDHName)
	}

	m.Emit(ctx, domain.EventTypeRawRIRData, string(body), ev)

	// Los datos de registro vienen de la autoridad pero no se verifican
	// aquí; confianza alta sin llegar a verificado.
	if registrar := reg.registrarName(); registrar != "" {
		m.EmitWithConfidence(ctx, domain.EventTypeDomainRegistrar, registrar, domain.ConfidenceHigh, ev)
	}

	seen := make(map[string]bool)
	for _, ns := range reg.Nameservers {
		host := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(ns.LDHName), "."))
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		m.EmitWithConfidence(ctx, domain.EventTypeProviderDNS, host, domain.ConfidenceHigh, ev)
	}

	if created, expires := reg.lifecycleDates(); created != "" || expires != "" {
		m.Logger().Debug("domain lifecycle",
			"domain", domainName,
			"registered", created,
			"expires", expires,
			"status", strings.Join(reg.Status, ","),
		)
	}
	return nil
}

// fetchRegistration consulta RDAP con cache: el mismo dominio apex se
// redescubre constantemente durante un escaneo.
func (m *RDAP) fetchRegistration(ctx context.Context, domainName string) ([]byte, error) {
	key := "rdap:" + domainName
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			if body, ok := v.([]byte); ok {
				return body, nil
			}
		}
	}

	body, err := m.client.FetchJSON(ctx, fmt.Sprintf(bootstrapURL, domainName))
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Set(key, body, cacheTTL)
	}
	return body, nil
}

// rdapResponse es la respuesta RDAP reducida a lo que el módulo usa.
type rdapResponse struct {
	LDHName     string           `json:"ldhName"`
	Status      []string         `json:"status"`
	Entities    []rdapEntity     `json:"entities"`
	Nameservers []rdapNameserver `json:"nameservers"`
	Events      []rdapEvent      `json:"events"`
}

// rdapEntity representa una entidad (registrador, contacto), posiblemente
// anidada dentro de otra.
type rdapEntity struct {
	Handle     string        `json:"handle"`
	Roles      []string      `json:"roles"`
	VCardArray []interface{} `json:"vcardArray"`
	Entities   []rdapEntity  `json:"entities"`
}

type rdapNameserver struct {
	LDHName string `json:"ldhName"`
}

// rdapEvent es un hito del ciclo de vida (registration, expiration...).
type rdapEvent struct {
	EventAction string `json:"eventAction"`
	EventDate   string `json:"eventDate"`
}

// registrarName retorna el nombre de la entidad con rol registrar: su
// campo vCard "fn", o el handle si el vCard no lo trae.
func (r rdapResponse) registrarName() string {
	return findRegistrar(r.Entities)
}

func findRegistrar(entities []rdapEntity) string {
	for _, entity := range entities {
		if hasRole(entity.Roles, "registrar") {
			if name := extractVCardField(entity.VCardArray, "fn"); name != "" {
				return name
			}
			if entity.Handle != "" {
				return entity.Handle
			}
		}
		if name := findRegistrar(entity.Entities); name != "" {
			return name
		}
	}
	return ""
}

func (r rdapResponse) lifecycleDates() (created, expires string) {
	for _, event := range r.Events {
		switch strings.ToLower(event.EventAction) {
		case "registration":
			created = event.EventDate
		case "expiration":
			expires = event.EventDate
		}
	}
	return created, expires
}

// extractVCardField extrae el valor de un campo jCard. El formato es
// ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "..."], ...]]:
// el nombre del campo va en el índice 0 y su valor en el 3.
func extractVCardField(vcardArray []interface{}, fieldName string) string {
	if len(vcardArray) < 2 {
		return ""
	}
	vcard, ok := vcardArray[1].([]interface{})
	if !ok {
		return ""
	}

	for _, item := range vcard {
		field, ok := item.([]interface{})
		if !ok || len(field) < 4 {
			continue
		}
		name, ok := field[0].(string)
		if !ok || !strings.EqualFold(name, fieldName) {
			continue
		}
		if value, ok := field[3].(string); ok {
			return value
		}
	}
	return ""
}

func hasRole(roles []string, role string) bool {
	for _, candidate := range roles {
		if strings.EqualFold(candidate, role) {
			return true
		}
	}
	return false
}
