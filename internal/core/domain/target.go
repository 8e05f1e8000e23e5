// internal/core/domain/target.go
package domain

import (
	"fmt"
	"net"
	"strings"
	"sync"
)

// TargetType define la clase de semilla con la que arranca un escaneo.
type TargetType string

const (
	TargetTypeIPAddress      TargetType = "IP_ADDRESS"
	TargetTypeIPv6Address    TargetType = "IPV6_ADDRESS"
	TargetTypeInternetName   TargetType = "INTERNET_NAME"
	TargetTypeEmailAddr      TargetType = "EMAILADDR"
	TargetTypeHumanName      TargetType = "HUMAN_NAME"
	TargetTypeUsername       TargetType = "USERNAME"
	TargetTypeBitcoinAddress TargetType = "BITCOIN_ADDRESS"
	TargetTypePhoneNumber    TargetType = "PHONE_NUMBER"
	TargetTypeNetblockOwner  TargetType = "NETBLOCK_OWNER"
	TargetTypeNetblockV6     TargetType = "NETBLOCKV6_OWNER"
	TargetTypeBGPASOwner     TargetType = "BGP_AS_OWNER"
)

// IsValid verifica si el tipo de objetivo pertenece al enum.
func (t TargetType) IsValid() bool {
	switch t {
	case TargetTypeIPAddress, TargetTypeIPv6Address, TargetTypeInternetName,
		TargetTypeEmailAddr, TargetTypeHumanName, TargetTypeUsername,
		TargetTypeBitcoinAddress, TargetTypePhoneNumber,
		TargetTypeNetblockOwner, TargetTypeNetblockV6, TargetTypeBGPASOwner:
		return true
	default:
		return false
	}
}

// String retorna la representación string del tipo.
func (t TargetType) String() string {
	return string(t)
}

// opaque indica que el tipo no tiene estructura comparable: nada puede
// afirmarse sobre la pertenencia de un valor, así que todo coincide.
func (t TargetType) opaque() bool {
	switch t {
	case TargetTypeHumanName, TargetTypePhoneNumber, TargetTypeUsername,
		TargetTypeBitcoinAddress, TargetTypeBGPASOwner:
		return true
	default:
		return false
	}
}

// Alias es una identidad equivalente al objetivo descubierta durante el
// escaneo (un CNAME, una IP resuelta, un netblock propio...).
type Alias struct {
	// Value es el valor de la identidad equivalente
	Value string

	// Type es el tipo de evento del que proviene (INTERNET_NAME, IP_ADDRESS...)
	Type string
}

// Target representa la semilla de un escaneo junto con las identidades
// equivalentes acumuladas. El registro de aliases es seguro para uso
// concurrente: los módulos lo enriquecen en caliente mientras otros
// consultan pertenencia.
type Target struct {
	value      string
	targetType TargetType

	mu      sync.RWMutex
	aliases []Alias
}

// NewTarget crea un objetivo validando el valor y el tipo.
func NewTarget(value string, targetType TargetType) (*Target, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyTargetValue
	}
	if !targetType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTargetType, targetType)
	}
	return &Target{
		value:      strings.ToLower(value),
		targetType: targetType,
	}, nil
}

// Value retorna el valor semilla normalizado.
func (t *Target) Value() string {
	return t.value
}

// Type retorna el tipo del objetivo.
func (t *Target) Type() TargetType {
	return t.targetType
}

// SetAlias registra una identidad equivalente. Entradas vacías o
// duplicadas se ignoran.
func (t *Target) SetAlias(value, eventType string) {
	value = strings.TrimSpace(value)
	if value == "" || eventType == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.aliases {
		if a.Value == value && a.Type == eventType {
			return
		}
	}
	t.aliases = append(t.aliases, Alias{Value: value, Type: eventType})
}

// Aliases retorna una copia del registro de identidades equivalentes.
func (t *Target) Aliases() []Alias {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Alias, len(t.aliases))
	copy(out, t.aliases)
	return out
}

// equivalents retorna los valores de alias, en minúsculas, cuyos tipos
// estén en la lista dada.
func (t *Target) equivalents(types ...string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, a := range t.aliases {
		for _, want := range types {
			if a.Type == want {
				out = append(out, strings.ToLower(a.Value))
				break
			}
		}
	}
	return out
}

// Names retorna los nombres de host equivalentes al objetivo: los alias
// de tipo INTERNET_NAME, el propio valor si el objetivo es un nombre, y
// la parte de dominio si el objetivo es una dirección de correo.
func (t *Target) Names() []string {
	names := t.equivalents(EventTypeInternetName)

	switch t.targetType {
	case TargetTypeInternetName:
		names = appendUnique(names, t.value)
	case TargetTypeEmailAddr:
		if i := strings.LastIndex(t.value, "@"); i >= 0 && i < len(t.value)-1 {
			names = appendUnique(names, t.value[i+1:])
		}
	}
	return names
}

// Addresses retorna las direcciones IP equivalentes al objetivo.
func (t *Target) Addresses() []string {
	addrs := t.equivalents(EventTypeIPAddress, EventTypeIPv6Address)

	switch t.targetType {
	case TargetTypeIPAddress, TargetTypeIPv6Address:
		addrs = appendUnique(addrs, t.value)
	}
	return addrs
}

// netblocks retorna los CIDR equivalentes al objetivo.
func (t *Target) netblocks() []string {
	blocks := t.equivalents(EventTypeNetblockOwner, EventTypeNetblockMember)

	switch t.targetType {
	case TargetTypeNetblockOwner, TargetTypeNetblockV6:
		blocks = appendUnique(blocks, t.value)
	}
	return blocks
}

// Matches decide si un valor descubierto pertenece al objetivo.
//
// Tipos opacos coinciden siempre. Direcciones IP coinciden por igualdad
// o por contención CIDR en los netblocks equivalentes. Nombres de host
// coinciden exactos, por hijos (includeChildren: value termina en
// "."+nombre) o por padres (includeParents: nombre termina en
// "."+value). Direcciones de correo delegan su parte de dominio.
// Entradas inválidas retornan false, nunca pánico.
func (t *Target) Matches(value string, includeParents, includeChildren bool) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}

	if t.targetType.opaque() {
		return true
	}

	if ip := net.ParseIP(value); ip != nil {
		for _, addr := range t.Addresses() {
			if value == addr {
				return true
			}
		}
		for _, block := range t.netblocks() {
			_, cidr, err := net.ParseCIDR(block)
			if err != nil {
				continue
			}
			if cidr.Contains(ip) {
				return true
			}
		}
		return false
	}

	host := value
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
		if host == "" {
			return false
		}
	}

	for _, name := range t.Names() {
		if host == name {
			return true
		}
		if includeChildren && strings.HasSuffix(host, "."+name) {
			return true
		}
		if includeParents && strings.HasSuffix(name, "."+host) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
