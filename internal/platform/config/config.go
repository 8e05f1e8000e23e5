// internal/platform/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"noctua/internal/core/domain"
	"noctua/internal/platform/errors"
)

// Config agrupa toda la configuración del motor de escaneo.
// Orden de precedencia: defaults -> variables de entorno NOCTUA_* -> flags.
type Config struct {
	Core    CoreConfig
	Modules ModulesConfig
	Storage StorageConfig
	Rules   RulesConfig
	Network NetworkConfig
	Output  OutputConfig
}

// CoreConfig controla el escaneo en sí: objetivo, selección de módulos
// y límites de concurrencia.
type CoreConfig struct {
	// Command es el subcomando pedido: scan, list, status, stop,
	// results, correlations o logs. Vacío = scan.
	Command string

	// ScanID identifica un escaneo existente para los subcomandos que
	// operan sobre uno (status, stop, results, correlations, logs).
	ScanID string

	// ScanName es el nombre legible del escaneo. Vacío = se usa el target.
	ScanName string

	// Target es el valor semilla del escaneo (dominio, IP, email, etc.).
	Target string

	// TargetType fuerza el tipo de la semilla. Vacío = autodetección.
	TargetType string

	// ModuleNames selecciona módulos por nombre. Vacío = selección por
	// tipos o caso de uso.
	ModuleNames []string

	// EventTypes selecciona módulos que produzcan estos tipos de evento.
	EventTypes []string

	// UseCase filtra módulos por caso de uso: passive, footprint,
	// investigate o all.
	UseCase string

	// MaxThreads es el límite de concurrencia por defecto del pool.
	MaxThreads int

	// ModuleThreads es el tope de entregas concurrentes por módulo.
	ModuleThreads int

	// TimeoutS es el timeout global del escaneo en segundos (0 = sin timeout).
	TimeoutS int

	// LogLevel: debug, info, warn o error.
	LogLevel string

	// PrintVersion indica que se pidió la versión por flag.
	PrintVersion bool
}

// ModulesConfig lleva opciones arbitrarias por módulo.
// Key exterior = nombre de módulo, interior = opción.
type ModulesConfig struct {
	Options map[string]map[string]string
}

// StorageConfig configura la capa de persistencia.
type StorageConfig struct {
	// DatabasePath es la ruta del fichero SQLite.
	DatabasePath string
}

// RulesConfig configura el motor de correlación.
type RulesConfig struct {
	// Dir es el directorio con las reglas YAML.
	Dir string

	// Correlate ejecuta las reglas al terminar el escaneo.
	Correlate bool
}

// NetworkConfig configura el tráfico saliente.
type NetworkConfig struct {
	// ProxyURL es un proxy HTTP(S) opcional.
	ProxyURL string

	// DNSServer sobreescribe el resolver del sistema (host:port).
	DNSServer string

	// UserAgent para peticiones HTTP. Vacío = el de la aplicación.
	UserAgent string
}

// OutputConfig configura la salida de resultados.
type OutputConfig struct {
	// Dir es el directorio de exportación.
	Dir string

	// Format: json o table.
	Format string

	// UIMode: pretty, plain o silent.
	UIMode string
}

// ValidationError describe un campo de configuración inválido.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implementa error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap permite detectar la clase de error con errors.IsValidation.
func (e *ValidationError) Unwrap() error {
	return errors.ErrValidation
}

// DefaultConfig retorna una configuración por defecto.
func DefaultConfig() Config {
	return Config{
		Core: CoreConfig{
			UseCase:       "all",
			MaxThreads:    10,
			ModuleThreads: 3,
			TimeoutS:      0,
			LogLevel:      "info",
		},
		Modules: ModulesConfig{
			Options: make(map[string]map[string]string),
		},
		Storage: StorageConfig{
			DatabasePath: "noctua.db",
		},
		Rules: RulesConfig{
			Dir:       "rules",
			Correlate: true,
		},
		Network: NetworkConfig{},
		Output: OutputConfig{
			Dir:    "noctua_out",
			Format: "table",
			UIMode: "pretty",
		},
	}
}

// Load inicializa la configuración: defaults, luego ENV, luego flags
// (los flags tienen prioridad). Con --version imprime la versión y sale.
func Load(version, commit, date string) (Config, error) {
	cfg := DefaultConfig()

	loadFromEnv(&cfg)
	loadFromFlags(&cfg)

	if cfg.Core.PrintVersion {
		PrintVersion(version, commit, date)
	}

	normalize(&cfg)

	return cfg, nil
}

// loadFromEnv carga configuración desde variables de entorno NOCTUA_*.
func loadFromEnv(cfg *Config) {
	if v := getenv("NOCTUA_TARGET", ""); v != "" {
		cfg.Core.Target = v
	}
	if v := getenv("NOCTUA_TARGET_TYPE", ""); v != "" {
		cfg.Core.TargetType = v
	}
	if v := getenv("NOCTUA_SCAN_NAME", ""); v != "" {
		cfg.Core.ScanName = v
	}
	if v := getenv("NOCTUA_MODULES", ""); v != "" {
		cfg.Core.ModuleNames = splitList(v)
	}
	if v := getenv("NOCTUA_TYPES", ""); v != "" {
		cfg.Core.EventTypes = splitList(v)
	}
	if v := getenv("NOCTUA_USECASE", ""); v != "" {
		cfg.Core.UseCase = v
	}
	if v := getenv("NOCTUA_MAX_THREADS", ""); v != "" {
		cfg.Core.MaxThreads = parseInt(v, cfg.Core.MaxThreads)
	}
	if v := getenv("NOCTUA_MODULE_THREADS", ""); v != "" {
		cfg.Core.ModuleThreads = parseInt(v, cfg.Core.ModuleThreads)
	}
	if v := getenv("NOCTUA_TIMEOUT", ""); v != "" {
		cfg.Core.TimeoutS = parseInt(v, cfg.Core.TimeoutS)
	}
	if v := getenv("NOCTUA_LOG_LEVEL", ""); v != "" {
		cfg.Core.LogLevel = v
	}
	if v := getenv("NOCTUA_DB_PATH", ""); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := getenv("NOCTUA_RULES_DIR", ""); v != "" {
		cfg.Rules.Dir = v
	}
	if v := getenv("NOCTUA_CORRELATE", ""); v != "" {
		cfg.Rules.Correlate = parseBool(v)
	}
	if v := getenv("NOCTUA_PROXY_URL", ""); v != "" {
		cfg.Network.ProxyURL = v
	}
	if v := getenv("NOCTUA_DNS_SERVER", ""); v != "" {
		cfg.Network.DNSServer = v
	}
	if v := getenv("NOCTUA_USER_AGENT", ""); v != "" {
		cfg.Network.UserAgent = v
	}
	if v := getenv("NOCTUA_OUTPUT_DIR", ""); v != "" {
		cfg.Output.Dir = v
	}
	if v := getenv("NOCTUA_OUTPUT_FORMAT", ""); v != "" {
		cfg.Output.Format = v
	}
	if v := getenv("NOCTUA_UI", ""); v != "" {
		cfg.Output.UIMode = v
	}

	// Opciones por módulo: NOCTUA_MOD_<MODULO>_<OPCION>=valor
	// Ej: NOCTUA_MOD_DNSRESOLVE_TIMEOUT=10 -> Options["dnsresolve"]["timeout"]
	for _, kv := range os.Environ() {
		const prefix = "NOCTUA_MOD_"
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		eq := strings.Index(kv, "=")
		if eq < 0 {
			continue
		}
		key, value := kv[len(prefix):eq], kv[eq+1:]

		parts := strings.SplitN(key, "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		module := strings.ToLower(parts[0])
		option := strings.ToLower(parts[1])
		setModuleOption(cfg, module, option, value)
	}
}

// loadFromFlags parsea flags de CLI sobre la configuración ya cargada.
func loadFromFlags(cfg *Config) {
	var (
		moduleList string
		typeList   string
		modOpts    []string
	)

	pflag.StringVar(&cfg.Core.ScanID, "scan", cfg.Core.ScanID, "Identificador de un escaneo existente")
	pflag.StringVarP(&cfg.Core.Target, "target", "t", cfg.Core.Target, "Valor objetivo del escaneo (dominio, IP, email...)")
	pflag.StringVar(&cfg.Core.TargetType, "target-type", cfg.Core.TargetType, "Forzar el tipo del objetivo (vacío = autodetectar)")
	pflag.StringVarP(&cfg.Core.ScanName, "name", "n", cfg.Core.ScanName, "Nombre del escaneo")
	pflag.StringVarP(&moduleList, "modules", "m", "", "Módulos a ejecutar, separados por comas")
	pflag.StringVar(&typeList, "types", "", "Seleccionar módulos por tipos de evento producidos")
	pflag.StringVarP(&cfg.Core.UseCase, "usecase", "u", cfg.Core.UseCase, "Caso de uso: passive, footprint, investigate o all")
	pflag.IntVarP(&cfg.Core.MaxThreads, "max-threads", "w", cfg.Core.MaxThreads, "Concurrencia máxima global")
	pflag.IntVar(&cfg.Core.ModuleThreads, "module-threads", cfg.Core.ModuleThreads, "Entregas concurrentes por módulo")
	pflag.IntVarP(&cfg.Core.TimeoutS, "timeout", "T", cfg.Core.TimeoutS, "Timeout global en segundos (0 = sin timeout)")
	pflag.StringVarP(&cfg.Core.LogLevel, "log-level", "l", cfg.Core.LogLevel, "Nivel de log: debug, info, warn, error")

	pflag.StringVarP(&cfg.Storage.DatabasePath, "db", "d", cfg.Storage.DatabasePath, "Ruta de la base de datos SQLite")

	pflag.StringVar(&cfg.Rules.Dir, "rules", cfg.Rules.Dir, "Directorio de reglas de correlación")
	pflag.BoolVar(&cfg.Rules.Correlate, "correlate", cfg.Rules.Correlate, "Correlacionar al terminar el escaneo")

	pflag.StringVarP(&cfg.Network.ProxyURL, "proxy", "p", cfg.Network.ProxyURL, "Proxy HTTP(S) para peticiones salientes (opcional)")
	pflag.StringVar(&cfg.Network.DNSServer, "dns", cfg.Network.DNSServer, "Servidor DNS a usar en vez del resolver del sistema")

	pflag.StringVarP(&cfg.Output.Dir, "out", "o", cfg.Output.Dir, "Directorio de salida")
	pflag.StringVarP(&cfg.Output.Format, "format", "f", cfg.Output.Format, "Formato de salida: json o table")
	pflag.StringVar(&cfg.Output.UIMode, "ui", cfg.Output.UIMode, "Modo de interfaz: pretty, plain o silent")

	pflag.StringArrayVar(&modOpts, "mod", nil, "Opción por módulo con formato modulo.opcion=valor (repetible)")

	pflag.BoolVarP(&cfg.Core.PrintVersion, "version", "v", false, "Imprimir versión y salir")

	pflag.Usage = func() {
		fmt.Fprint(os.Stdout, helpText)
	}

	pflag.Parse()

	// El primer argumento posicional es el subcomando
	if pflag.NArg() > 0 {
		cfg.Core.Command = pflag.Arg(0)
	}

	if moduleList != "" {
		cfg.Core.ModuleNames = splitList(moduleList)
	}
	if typeList != "" {
		cfg.Core.EventTypes = splitList(typeList)
	}
	for _, opt := range modOpts {
		module, option, value, ok := parseModOpt(opt)
		if !ok {
			continue
		}
		setModuleOption(cfg, module, option, value)
	}
}

// parseModOpt descompone "modulo.opcion=valor".
func parseModOpt(s string) (module, option, value string, ok bool) {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return "", "", "", false
	}
	key, value := s[:eq], s[eq+1:]

	dot := strings.Index(key, ".")
	if dot <= 0 || dot == len(key)-1 {
		return "", "", "", false
	}
	return strings.ToLower(key[:dot]), strings.ToLower(key[dot+1:]), value, true
}

// setModuleOption registra una opción por módulo, creando el mapa si hace falta.
func setModuleOption(cfg *Config, module, option, value string) {
	if cfg.Modules.Options == nil {
		cfg.Modules.Options = make(map[string]map[string]string)
	}
	if cfg.Modules.Options[module] == nil {
		cfg.Modules.Options[module] = make(map[string]string)
	}
	cfg.Modules.Options[module][option] = value
}

func normalize(c *Config) {
	c.Core.Command = strings.ToLower(strings.TrimSpace(c.Core.Command))
	if c.Core.Command == "" {
		c.Core.Command = "scan"
	}
	c.Core.Target = strings.TrimSuffix(strings.TrimSpace(c.Core.Target), ".")
	c.Core.UseCase = strings.ToLower(strings.TrimSpace(c.Core.UseCase))
	c.Core.LogLevel = strings.ToLower(strings.TrimSpace(c.Core.LogLevel))
	c.Core.TargetType = strings.ToUpper(strings.TrimSpace(c.Core.TargetType))

	if c.Core.ScanName == "" {
		c.Core.ScanName = c.Core.Target
	}
	if c.Core.MaxThreads < 1 {
		c.Core.MaxThreads = 1
	}
	if c.Core.ModuleThreads < 1 {
		c.Core.ModuleThreads = 1
	}
	if c.Core.TimeoutS < 0 {
		c.Core.TimeoutS = 0
	}
	if c.Core.UseCase == "" {
		c.Core.UseCase = "all"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "noctua.db"
	}
	if c.Rules.Dir == "" {
		c.Rules.Dir = "rules"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "noctua_out"
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = "table"
	}
	c.Output.UIMode = strings.ToLower(strings.TrimSpace(c.Output.UIMode))
	if c.Output.UIMode == "" {
		c.Output.UIMode = "pretty"
	}
}

// Validate comprueba la coherencia de la configuración cargada.
// Retorna todos los problemas encontrados unidos en un solo error.
func (c Config) Validate() error {
	var errs []error

	switch c.Core.Command {
	case "scan", "list", "status", "stop", "results", "correlations", "logs":
	default:
		errs = append(errs, &ValidationError{
			Field:  "command",
			Reason: fmt.Sprintf("%q is not one of scan, list, status, stop, results, correlations, logs", c.Core.Command),
		})
	}

	switch c.Core.UseCase {
	case "passive", "footprint", "investigate", "all":
	default:
		errs = append(errs, &ValidationError{
			Field:  "usecase",
			Reason: fmt.Sprintf("%q is not one of passive, footprint, investigate, all", c.Core.UseCase),
		})
	}

	if c.Core.TargetType != "" && !domain.TargetType(c.Core.TargetType).IsValid() {
		errs = append(errs, &ValidationError{
			Field:  "target-type",
			Reason: fmt.Sprintf("unknown target type %q", c.Core.TargetType),
		})
	}

	switch c.Output.Format {
	case "json", "table":
	default:
		errs = append(errs, &ValidationError{
			Field:  "format",
			Reason: fmt.Sprintf("%q is not one of json, table", c.Output.Format),
		})
	}

	switch c.Output.UIMode {
	case "pretty", "plain", "silent":
	default:
		errs = append(errs, &ValidationError{
			Field:  "ui",
			Reason: fmt.Sprintf("%q is not one of pretty, plain, silent", c.Output.UIMode),
		})
	}

	switch c.Core.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{
			Field:  "log-level",
			Reason: fmt.Sprintf("%q is not one of debug, info, warn, error", c.Core.LogLevel),
		})
	}

	if c.Network.ProxyURL != "" {
		if u, err := url.Parse(c.Network.ProxyURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, &ValidationError{
				Field:  "proxy",
				Reason: fmt.Sprintf("%q is not a valid proxy URL (expected scheme://host:port)", c.Network.ProxyURL),
			})
		}
	}

	return errors.Join(errs...)
}

// ToJSON serializa la configuración a JSON (útil para debugging).
func (c Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// String retorna un resumen con las opciones de módulo sensibles redactadas.
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "target=%q type=%q usecase=%s threads=%d/%d db=%s rules=%s out=%s/%s",
		c.Core.Target, c.Core.TargetType, c.Core.UseCase,
		c.Core.MaxThreads, c.Core.ModuleThreads,
		c.Storage.DatabasePath, c.Rules.Dir, c.Output.Dir, c.Output.Format)

	for module, opts := range c.Modules.Options {
		for option, value := range opts {
			if sensitiveOption(option) {
				value = "***"
			}
			fmt.Fprintf(&b, " %s.%s=%s", module, option, value)
		}
	}
	return b.String()
}

// sensitiveOption marca opciones que parecen credenciales.
func sensitiveOption(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range []string{"key", "token", "secret", "password"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Timeout devuelve el timeout global como time.Duration (0 = sin timeout).
func (c Config) Timeout() time.Duration {
	if c.Core.TimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.Core.TimeoutS) * time.Second
}

// Helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
