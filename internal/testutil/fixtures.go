// internal/testutil/fixtures.go
package testutil

// Fixture data para tests (valores primitivos solamente, sin dependencias de domain)

// FixtureHostnames contiene nombres de host de prueba válidos.
var FixtureHostnames = []string{
	"example.com",
	"www.example.com",
	"mail.example.com",
	"deep.sub.example.com",
}

// FixtureInvalidHostnames contiene nombres de host inválidos.
var FixtureInvalidHostnames = []string{
	"",
	"not a hostname",
	"-invalid.com",
	".example.com",
	"example..com",
}

// FixtureIPs contiene IPs de prueba (rangos de documentación).
var FixtureIPs = []string{
	"192.0.2.1",
	"192.0.2.10",
	"198.51.100.7",
	"203.0.113.9",
}

// FixtureIPv6 contiene IPv6 de prueba.
var FixtureIPv6 = []string{
	"2001:db8::1",
	"2001:db8:85a3::8a2e:370:7334",
	"::1",
}

// FixtureNetblocks contiene CIDRs de prueba.
var FixtureNetblocks = []string{
	"192.0.2.0/24",
	"198.51.100.0/24",
	"2001:db8::/32",
}

// FixtureEmails contiene direcciones de correo de prueba.
var FixtureEmails = []string{
	"admin@example.com",
	"contact@example.com",
	"info@mail.example.com",
}

// FixtureGenericEmails contiene buzones genéricos que no identifican personas.
var FixtureGenericEmails = []string{
	"abuse@example.com",
	"noreply@example.com",
	"postmaster@example.com",
}

// FixtureSeeds contiene pares valor/tipo para detección de tipo de objetivo.
var FixtureSeeds = map[string]string{
	"192.0.2.1":                          "IP_ADDRESS",
	"192.0.2.0/24":                       "NETBLOCK_OWNER",
	"2001:db8::1":                        "IPV6_ADDRESS",
	"2001:db8::/32":                      "NETBLOCKV6_OWNER",
	"admin@example.com":                  "EMAILADDR",
	"+1234567890":                        "PHONE_NUMBER",
	"\"John Doe\"":                       "HUMAN_NAME",
	"\"jdoe\"":                           "USERNAME",
	"64500":                              "BGP_AS_OWNER",
	"example.com":                        "INTERNET_NAME",
	"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa": "BITCOIN_ADDRESS",
}
