// internal/modules/emailextract/emailextract.go
package emailextract

import (
	"context"
	"regexp"
	"strings"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/modules/common"
	"noctua/internal/platform/logx"
	"noctua/internal/platform/registry"
	"noctua/internal/platform/validator"
)

const moduleName = "emailextract"

// emailPattern es deliberadamente amplio: extrae candidatos de cualquier
// payload (JSON crudo, banners, texto) y el filtrado fino viene después.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// genericLocals son buzones de rol, no personas: se emiten con su propio
// tipo para que pesen distinto en la correlación.
var genericLocals = map[string]bool{
	"abuse":       true,
	"admin":       true,
	"billing":     true,
	"contact":     true,
	"dns":         true,
	"ftp":         true,
	"hostmaster":  true,
	"info":        true,
	"list":        true,
	"marketing":   true,
	"no-reply":    true,
	"noc":         true,
	"noreply":     true,
	"postmaster":  true,
	"privacy":     true,
	"registrar":   true,
	"registry":    true,
	"root":        true,
	"sales":       true,
	"security":    true,
	"spam":        true,
	"support":     true,
	"sysadmin":    true,
	"tech":        true,
	"unsubscribe": true,
	"webmaster":   true,
	"www":         true,
}

// imageSuffixes corta el falso positivo clásico: nombres de asset tipo
// icon@2x.png que el regex toma por direcciones.
var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// Auto-registro del módulo al importar el package
func init() {
	if err := registry.Global().Register(
		moduleName,
		func(deps registry.Deps) (ports.Module, error) {
			return New(deps), nil
		},
		ports.ModuleMeta{
			Name:    moduleName,
			Summary: "Extract e-mail addresses from any event payload",
			UseCases: []ports.UseCase{
				ports.UseCasePassive,
				ports.UseCaseFootprint,
				ports.UseCaseInvestigate,
			},
			Watches: []string{domain.WildcardEventType},
			Produces: []string{
				domain.EventTypeEmailAddr,
				domain.EventTypeEmailAddrGeneric,
			},
		},
	); err != nil {
		logx.New().Warn("failed to register emailextract module", "error", err.Error())
	}
}

// EmailExtract observa todos los eventos del escaneo y extrae direcciones
// de correo de sus payloads. Solo las direcciones cuyo dominio pertenece
// al objetivo (padres incluidos) se convierten en hallazgos.
type EmailExtract struct {
	*common.Base
}

// New crea una instancia del módulo.
func New(_ registry.Deps) *EmailExtract {
	return &EmailExtract{Base: common.NewBase(moduleName)}
}

// WatchedEvents retorna los tipos que el módulo consume: todos.
func (m *EmailExtract) WatchedEvents() []string {
	return []string{domain.WildcardEventType}
}

// ProducedEvents retorna los tipos que el módulo emite.
func (m *EmailExtract) ProducedEvents() []string {
	return []string{
		domain.EventTypeEmailAddr,
		domain.EventTypeEmailAddrGeneric,
	}
}

// HandleEvent extrae direcciones del payload del evento.
func (m *EmailExtract) HandleEvent(ctx context.Context, ev *domain.Event) error {
	if m.CheckForStop(ctx) {
		return nil
	}
	if ev.IsRoot() {
		return nil
	}
	switch ev.Type {
	case domain.EventTypeEmailAddr, domain.EventTypeEmailAddrGeneric:
		// Re-minar direcciones ya extraídas solo produce eco
		return nil
	}

	env := m.Env()
	if env == nil || env.Target == nil {
		return nil
	}

	seen := make(map[string]bool)
	for _, candidate := range emailPattern.FindAllString(ev.Data, -1) {
		email := validator.NormalizeEmail(candidate)
		if seen[email] {
			continue
		}
		seen[email] = true

		if !plausibleEmail(email) {
			continue
		}

		at := strings.LastIndex(email, "@")
		local, host := email[:at], email[at+1:]

		// Un buzón del dominio padre también pertenece al objetivo:
		// security@example.com cuenta al escanear portal.example.com.
		if !env.Target.Matches(host, true, true) {
			m.Logger().Debug("email outside target scope", "email", email)
			continue
		}

		eventType := domain.EventTypeEmailAddr
		if genericLocals[local] {
			eventType = domain.EventTypeEmailAddrGeneric
		}
		// Minada de contenido ajeno, sin verificar que el buzón exista.
		m.EmitWithConfidence(ctx, eventType, email, domain.ConfidenceMedium, ev)
	}
	return nil
}

// plausibleEmail descarta los falsos positivos típicos del regex:
// fragmentos URL-encoded y nombres de asset con pinta de dirección.
func plausibleEmail(email string) bool {
	if len(email) < 5 || strings.Contains(email, "%") {
		return false
	}
	for _, ext := range imageSuffixes {
		if strings.HasSuffix(email, ext) {
			return false
		}
	}
	return validator.IsEmail(email)
}
