// internal/modules/crtsh/crtsh.go
package crtsh

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

const moduleName = "crtsh"

const (
	// queryURL consulta todos los certificados emitidos para el dominio
	// y sus subdominios (%25 es el comodín % escapado).
	queryURL = "https://crt.sh/?q=%%25.%s&output=json"

	cacheTTL = 6 * time.Hour
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
			Summary: "Certificate Transparency log search via crt.sh",
			UseCases: []ports.UseCase{
				ports.UseCasePassive,
				ports.UseCaseFootprint,
				ports.UseCaseInvestigate,
			},
			Watches: []string{domain.EventTypeDomainName},
			Produces: []string{
				domain.EventTypeInternetName,
				domain.EventTypeSSLCertIssued,
				domain.EventTypeRawRIRData,
			},
		},
	); err != nil {
		logx.New().Warn("failed to register crtsh module", "error", err.Error())
	}
}

// CRT consulta la base de datos crt.sh para descubrir nombres de host
// acreditados en certificados TLS emitidos para el dominio objetivo.
type CRT struct {
	*common.Base

	client        *httpclient.Client
	cache         cache.Cache
	ignoreExpired bool
}

// New crea una instancia del módulo. El cliente HTTP se deriva de la
// configuración base de la plataforma con límites propios: crt.sh no
// documenta rate limit, así que se consulta con moderación.
func New(deps registry.Deps) *CRT {
	cfg := deps.HTTP
	cfg.Timeout = 30 * time.Second
	cfg.MaxRetries = 3
	cfg.RetryBackoff = 2 * time.Second
	cfg.RateLimit = 2.0
	cfg.RateLimitBurst = 1

	return &CRT{
		Base:   common.NewBase(moduleName),
		client: httpclient.New(cfg, deps.Logger),
		cache:  deps.Cache,
	}
}

// WatchedEvents retorna los tipos que el módulo consume.
func (m *CRT) WatchedEvents() []string {
	return []string{domain.EventTypeDomainName}
}

// ProducedEvents retorna los tipos que el módulo emite.
func (m *CRT) ProducedEvents() []string {
	return []string{
		domain.EventTypeInternetName,
		domain.EventTypeSSLCertIssued,
		domain.EventTypeRawRIRData,
	}
}

// Setup prepara el módulo para un escaneo y aplica las opciones de usuario.
func (m *CRT) Setup(ctx context.Context, env *ports.ModuleEnv, opts map[string]string) error {
	if err := m.Base.Setup(ctx, env, opts); err != nil {
		return err
	}
	m.ignoreExpired = registry.GetBoolOption(opts, "ignore_expired", false)
	return nil
}

// HandleEvent consulta los logs de transparencia para cada dominio.
func (m *CRT) HandleEvent(ctx context.Context, ev *domain.Event) error {
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

	body, err := m.fetchCertificates(ctx, domainName)
	if err != nil {
		if errors.IsNotFound(err) {
			m.Logger().Debug("no certificate transparency data", "domain", domainName)
			return nil
		}
		// Fallo persistente tras los reintentos del cliente: seguir
		// consultando un servicio caído no aporta nada.
		return errors.Wrapf(err, "crt.sh query for %s failed", domainName)
	}

	var records []certRecord
	if err := json.Unmarshal(body, &records); err != nil {
		// crt.sh responde HTML durante mantenimientos
		m.Logger().Warn("unparseable crt.sh response", "domain", domainName, "error", err.Error())
		return nil
	}
	if len(records) == 0 {
		m.Logger().Debug("no certificates found", "domain", domainName)
		return nil
	}

	m.Emit(ctx, domain.EventTypeRawRIRData, string(body), ev)
	m.processRecords(ctx, records, ev)
	return nil
}

// fetchCertificates consulta crt.sh con cache: los logs CT cambian
// despacio y el mismo dominio puede redescubrirse varias veces por escaneo.
func (m *CRT) fetchCertificates(ctx context.Context, domainName string) ([]byte, error) {
	key := "crtsh:" + domainName
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			if body, ok := v.([]byte); ok {
				return body, nil
			}
		}
	}

	body, err := m.client.FetchJSON(ctx, fmt.Sprintf(queryURL, domainName))
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Set(key, body, cacheTTL)
	}
	return body, nil
}

// processRecords recorre los certificados y emite los nombres en ámbito.
func (m *CRT) processRecords(ctx context.Context, records []certRecord, src *domain.Event) {
	env := m.Env()

	seenHosts := make(map[string]bool)
	seenSubjects := make(map[string]bool)
	now := time.Now()

	for _, record := range records {
		if m.CheckForStop(ctx) {
			return
		}
		if m.ignoreExpired && record.expired(now) {
			m.Logger().Debug("skipping expired certificate",
				"serial", record.SerialNumber,
				"not_after", record.NotAfter,
			)
			continue
		}

		for _, host := range record.hosts() {
			host = strings.ToLower(strings.TrimSpace(host))
			host = strings.TrimPrefix(host, "*.")
			if host == "" || seenHosts[host] {
				continue
			}
			seenHosts[host] = true

			if env == nil || env.Target == nil || !env.Target.Matches(host, false, true) {
				continue
			}
			// Un certificado acredita que el nombre existió, no que siga
			// vivo: la resolución DNS es la que sube la confianza.
			m.EmitWithConfidence(ctx, domain.EventTypeInternetName, host, domain.ConfidenceMedium, src)
		}

		subject := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(record.CommonName), "*."))
		if subject == "" || seenSubjects[subject] {
			continue
		}
		seenSubjects[subject] = true

		if env != nil && env.Target != nil && env.Target.Matches(subject, false, true) {
			m.Logger().Debug("certificate subject in scope",
				"subject", subject,
				"issuer", record.IssuerName,
				"serial", record.SerialNumber,
			)
			m.EmitWithConfidence(ctx, domain.EventTypeSSLCertIssued, subject, domain.ConfidenceMedium, src)
		}
	}
}

// certRecord representa un registro de certificado de crt.sh.
type certRecord struct {
	IssuerName   string `json:"issuer_name"`
	CommonName   string `json:"common_name"`
	NameValue    string `json:"name_value"`
	SAN          string `json:"san"`
	NotAfter     string `json:"not_after"`
	NotBefore    string `json:"not_before"`
	SerialNumber string `json:"serial_number"`
}

// hosts retorna todos los nombres que el registro acredita: el common
// name, las entradas de name_value (separadas por saltos de línea) y
// las SAN (separadas por comas).
func (r certRecord) hosts() []string {
	out := make([]string, 0, 4)
	if r.CommonName != "" {
		out = append(out, r.CommonName)
	}
	for _, h := range strings.Split(r.NameValue, "\n") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	for _, h := range strings.Split(r.SAN, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// expired indica si el certificado ya venció. Fechas ilegibles cuentan
// como vigentes para no descartar datos por formato.
func (r certRecord) expired(now time.Time) bool {
	if r.NotAfter == "" {
		return false
	}
	notAfter, err := time.Parse("2006-01-02T15:04:05", r.NotAfter)
	if err != nil {
		return false
	}
	return notAfter.Before(now)
}
