// internal/core/domain/event_types.go
package domain

// Vocabulario controlado de tipos de evento. Los módulos declaran qué
// tipos observan y producen usando estas constantes; las reglas de
// correlación los referencian por su forma textual.
const (
	// Raíz del escaneo
	EventTypeRoot = "ROOT"

	// Nombres e infraestructura de red
	EventTypeDomainName             = "DOMAIN_NAME"
	EventTypeDomainRegistrar        = "DOMAIN_REGISTRAR"
	EventTypeInternetName           = "INTERNET_NAME"
	EventTypeInternetNameUnresolved = "INTERNET_NAME_UNRESOLVED"
	EventTypeIPAddress              = "IP_ADDRESS"
	EventTypeIPv6Address            = "IPV6_ADDRESS"
	EventTypeNetblockOwner          = "NETBLOCK_OWNER"
	EventTypeNetblockV6Owner        = "NETBLOCKV6_OWNER"
	EventTypeNetblockMember         = "NETBLOCK_MEMBER"
	EventTypeBGPASOwner             = "BGP_AS_OWNER"
	EventTypeCoHostedSite           = "CO_HOSTED_SITE"
	EventTypeSimilarDomain          = "SIMILARDOMAIN"

	// Identidades y contacto
	EventTypeEmailAddr        = "EMAILADDR"
	EventTypeEmailAddrGeneric = "EMAILADDR_GENERIC"
	EventTypeHumanName        = "HUMAN_NAME"
	EventTypeUsername         = "USERNAME"
	EventTypePhoneNumber      = "PHONE_NUMBER"
	EventTypeBitcoinAddress   = "BITCOIN_ADDRESS"
	EventTypePhysicalAddress  = "PHYSICAL_ADDRESS"
	EventTypeCountryName      = "COUNTRY_NAME"
	EventTypeGeoInfo          = "GEOINFO"

	// DNS y registros crudos
	EventTypeRawRIRData    = "RAW_RIR_DATA"
	EventTypeRawDNSRecords = "RAW_DNS_RECORDS"
	EventTypeDNSText       = "DNS_TEXT"
	EventTypeProviderDNS   = "PROVIDER_DNS"
	EventTypeProviderMail  = "PROVIDER_MAIL"

	// Certificados TLS
	EventTypeSSLCertIssued = "SSL_CERTIFICATE_ISSUED"
	EventTypeSSLCertIssuer = "SSL_CERTIFICATE_ISSUER"
	EventTypeSSLCertRaw    = "SSL_CERTIFICATE_RAW"

	// Superficie expuesta
	EventTypeLinkedURLInternal = "LINKED_URL_INTERNAL"
	EventTypeTCPPortOpen       = "TCP_PORT_OPEN"
	EventTypeOperatingSystem   = "OPERATING_SYSTEM"
	EventTypeSoftwareUsed      = "SOFTWARE_USED"
	EventTypeWebserverBanner   = "WEBSERVER_BANNER"

	// Indicadores de riesgo
	EventTypeMaliciousIPAddr       = "MALICIOUS_IPADDR"
	EventTypeMaliciousInternetName = "MALICIOUS_INTERNET_NAME"
	EventTypeVulnerability         = "VULNERABILITY_GENERAL"
)

// WildcardEventType indica que un módulo observa todos los tipos.
const WildcardEventType = "*"

// EventTypeInfo describe un tipo de evento del vocabulario.
type EventTypeInfo struct {
	// Type es la forma textual del tipo
	Type string

	// Description es la descripción legible del tipo
	Description string

	// Entity indica si el dato representa una entidad discreta
	// (host, dirección, persona) y no un blob descriptivo
	Entity bool
}

// knownEventTypes es la tabla semilla del vocabulario, usada por el
// almacenamiento para poblar tbl_event_types.
var knownEventTypes = []EventTypeInfo{
	{EventTypeRoot, "Internal root event", false},
	{EventTypeDomainName, "Domain name", true},
	{EventTypeDomainRegistrar, "Domain registrar", true},
	{EventTypeInternetName, "Internet name", true},
	{EventTypeInternetNameUnresolved, "Internet name - unresolved", true},
	{EventTypeIPAddress, "IP address", true},
	{EventTypeIPv6Address, "IPv6 address", true},
	{EventTypeNetblockOwner, "Netblock ownership", true},
	{EventTypeNetblockV6Owner, "Netblock ownership - IPv6", true},
	{EventTypeNetblockMember, "Netblock membership", true},
	{EventTypeBGPASOwner, "BGP AS ownership", true},
	{EventTypeCoHostedSite, "Co-hosted site", true},
	{EventTypeSimilarDomain, "Similar domain", true},
	{EventTypeEmailAddr, "Email address", true},
	{EventTypeEmailAddrGeneric, "Email address - generic", true},
	{EventTypeHumanName, "Human name", true},
	{EventTypeUsername, "Username", true},
	{EventTypePhoneNumber, "Phone number", true},
	{EventTypeBitcoinAddress, "Bitcoin address", true},
	{EventTypePhysicalAddress, "Physical address", true},
	{EventTypeCountryName, "Country name", false},
	{EventTypeGeoInfo, "Physical location", false},
	{EventTypeRawRIRData, "Raw data from RIRs and APIs", false},
	{EventTypeRawDNSRecords, "Raw DNS records", false},
	{EventTypeDNSText, "DNS TXT record", false},
	{EventTypeProviderDNS, "Name server", true},
	{EventTypeProviderMail, "Email gateway", true},
	{EventTypeSSLCertIssued, "SSL certificate issued to", true},
	{EventTypeSSLCertIssuer, "SSL certificate issued by", true},
	{EventTypeSSLCertRaw, "SSL certificate raw data", false},
	{EventTypeLinkedURLInternal, "Linked URL - internal", true},
	{EventTypeTCPPortOpen, "Open TCP port", true},
	{EventTypeOperatingSystem, "Operating system", true},
	{EventTypeSoftwareUsed, "Software in use", true},
	{EventTypeWebserverBanner, "Web server banner", false},
	{EventTypeMaliciousIPAddr, "Malicious IP address", true},
	{EventTypeMaliciousInternetName, "Malicious internet name", true},
	{EventTypeVulnerability, "Vulnerability - general", true},
}

// KnownEventTypes retorna la tabla del vocabulario controlado.
func KnownEventTypes() []EventTypeInfo {
	out := make([]EventTypeInfo, len(knownEventTypes))
	copy(out, knownEventTypes)
	return out
}

// IsKnownEventType indica si el tipo pertenece al vocabulario.
func IsKnownEventType(eventType string) bool {
	for _, info := range knownEventTypes {
		if info.Type == eventType {
			return true
		}
	}
	return false
}
