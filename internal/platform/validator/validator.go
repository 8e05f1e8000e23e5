// internal/platform/validator/validator.go
package validator

import (
	"net"
	"regexp"
	"strings"

	"noctua/internal/core/domain"
	"noctua/internal/platform/errors"
)

// Target type detection

var (
	dottedQuadRegex = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	phoneRegex      = regexp.MustCompile(`^\+[0-9]+$`)
	humanNameRegex  = regexp.MustCompile(`^".+\s+.+"$`)
	usernameRegex   = regexp.MustCompile(`^"\S+"$`)
	asnRegex        = regexp.MustCompile(`^[0-9]+$`)
	bitcoinRegex    = regexp.MustCompile(`^(bc(0([ac-hj-np-z02-9]{39}|[ac-hj-np-z02-9]{59})|1[ac-hj-np-z02-9]{8,87})|[13][a-km-zA-HJ-NP-Z1-9]{25,34})$`)
)

// GuessTargetType deduce el tipo de semilla a partir de su forma.
// El orden de las reglas importa: una cadena de solo dígitos es un ASN,
// nunca una dirección IPv6 abreviada, y cualquier cadena con arroba es
// un email antes que cualquier otra cosa.
func GuessTargetType(raw string) (domain.TargetType, error) {
	seed := strings.TrimSpace(raw)
	if seed == "" {
		return "", errors.Wrap(errors.ErrValidation, "empty scan target")
	}

	switch {
	case dottedQuadRegex.MatchString(seed):
		if net.ParseIP(seed) == nil {
			return "", errors.Wrapf(errors.ErrValidation, "%q looks like an IPv4 address but has out-of-range octets", seed)
		}
		return domain.TargetTypeIPAddress, nil

	case strings.Contains(seed, "/"):
		ip, _, err := net.ParseCIDR(seed)
		if err != nil {
			return "", errors.Wrapf(errors.ErrValidation, "%q is not a valid CIDR netblock", seed)
		}
		if ip.To4() != nil {
			return domain.TargetTypeNetblockOwner, nil
		}
		return domain.TargetTypeNetblockV6, nil

	case strings.Contains(seed, "@"):
		return domain.TargetTypeEmailAddr, nil

	case phoneRegex.MatchString(seed):
		return domain.TargetTypePhoneNumber, nil

	case humanNameRegex.MatchString(seed):
		return domain.TargetTypeHumanName, nil

	case usernameRegex.MatchString(seed):
		return domain.TargetTypeUsername, nil

	case asnRegex.MatchString(seed):
		return domain.TargetTypeBGPASOwner, nil

	case IsIPv6(seed):
		return domain.TargetTypeIPv6Address, nil

	case strings.Contains(seed, ".") && IsDomain(seed):
		return domain.TargetTypeInternetName, nil

	case bitcoinRegex.MatchString(seed):
		return domain.TargetTypeBitcoinAddress, nil

	default:
		return "", errors.Wrapf(errors.ErrValidation, "unable to determine target type of %q", seed)
	}
}

// Domain validators

// IsDomain verifica si un string es un dominio válido.
// Soporta dominios internacionales (IDN) y punycode.
func IsDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}

	// Regex para validar dominios
	// Permite dominios internacionales (IDN) y punycode
	domainRegex := regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`)
	if !domainRegex.MatchString(domain) {
		return false
	}

	// Verificar que no sea una IP
	if net.ParseIP(domain) != nil {
		return false
	}

	return true
}

// IsSubdomain verifica si subdomain es un subdominio válido de baseDomain.
func IsSubdomain(subdomain, baseDomain string) bool {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	baseDomain = strings.ToLower(strings.TrimSpace(baseDomain))

	if subdomain == baseDomain {
		return false
	}

	return strings.HasSuffix(subdomain, "."+baseDomain)
}

// NormalizeDomain normaliza un dominio a su forma canónica.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimSuffix(domain, ".")
	domain = strings.TrimPrefix(domain, "www.")
	return domain
}

// Email validators

// IsEmail valida formato de email (RFC 5322 simplificado).
func IsEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}

	// Regex simplificada para email
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// NormalizeEmail normaliza un email a su forma canónica.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Network validators

// IsIP verifica si un string es una dirección IP válida (v4 o v6).
func IsIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// IsIPv4 verifica si un string es una dirección IPv4 válida.
func IsIPv4(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.To4() != nil
}

// IsIPv6 verifica si un string es una dirección IPv6 válida.
func IsIPv6(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.To4() == nil
}

// NormalizeIP normaliza una IP a su forma canónica.
// Si la IP es inválida, retorna string vacío.
func NormalizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "" // Invalid IP
	}
	return parsed.String()
}
