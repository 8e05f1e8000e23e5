// internal/platform/registry/module_registry.go
package registry

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"noctua/internal/core/ports"
	"noctua/internal/platform/cache"
	"noctua/internal/platform/httpclient"
	"noctua/internal/platform/logx"
)

// ModuleRegistry gestiona el registro y construcción de módulos de scan.
// Implementa el patrón Registry + Factory para desacoplar la creación
// de módulos del código de aplicación.
type ModuleRegistry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
	metadata  map[string]ports.ModuleMeta
	logger    logx.Logger
}

// ModuleFactory es una función que crea una instancia de Module.
type ModuleFactory func(deps Deps) (ports.Module, error)

// Deps agrupa los servicios de plataforma que un módulo recibe al
// construirse. Los módulos derivan sus propios clientes HTTP a partir
// de la configuración base para poder ajustar timeouts y rate limits
// por servicio sin perder proxy ni user agent globales.
type Deps struct {
	Logger   logx.Logger
	HTTP     httpclient.Config
	Cache    cache.Cache
	Resolver *net.Resolver
}

// globalRegistry es la instancia global del registry.
var globalRegistry *ModuleRegistry
var once sync.Once

// Global retorna la instancia global del registry.
func Global() *ModuleRegistry {
	once.Do(func() {
		globalRegistry = NewModuleRegistry(logx.New())
	})
	return globalRegistry
}

// NewModuleRegistry crea un nuevo registry de módulos.
func NewModuleRegistry(logger logx.Logger) *ModuleRegistry {
	return &ModuleRegistry{
		factories: make(map[string]ModuleFactory),
		metadata:  make(map[string]ports.ModuleMeta),
		logger:    logger.With("component", "module-registry"),
	}
}

// Register registra una module factory con su metadata.
// Típicamente llamado desde init() de cada module package.
func (r *ModuleRegistry) Register(name string, factory ModuleFactory, meta ports.ModuleMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory cannot be nil for module %s", name)
	}

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}

	r.factories[name] = factory
	r.metadata[name] = meta
	r.logger.Debug("module registered", "name", name, "watches", len(meta.Watches), "produces", len(meta.Produces))

	return nil
}

// Build construye los módulos solicitados, en el orden dado.
// A diferencia de una construcción best-effort, cualquier nombre
// desconocido o fallo de factory aborta la construcción completa: un
// scan no debe arrancar con menos módulos de los que pidió el usuario.
func (r *ModuleRegistry) Build(names []string, deps Deps) ([]ports.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Validación de dependencias (fail-fast)
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	// Deduplicar preservando el orden de primera aparición
	seen := make(map[string]bool, len(names))
	ordered := make([]string, 0, len(names))
	unknown := make([]string, 0)

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if _, exists := r.factories[name]; !exists {
			unknown = append(unknown, name)
			continue
		}
		ordered = append(ordered, name)
	}

	if len(unknown) > 0 {
		return nil, fmt.Errorf("modules not registered: %s", strings.Join(unknown, ", "))
	}

	modules := make([]ports.Module, 0, len(ordered))
	for _, name := range ordered {
		factory := r.factories[name] // Ya validado arriba

		module, err := factory(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to build module %s: %w", name, err)
		}

		modules = append(modules, module)
		r.logger.Debug("module built", "name", name)
	}

	// Use the provided logger (respects visual mode) instead of registry's logger
	deps.Logger.Info("modules built", "count", len(modules), "requested", len(names))
	return modules, nil
}

// SelectByUseCase retorna los nombres de los módulos que participan en
// un caso de uso, ordenados alfabéticamente.
func (r *ModuleRegistry) SelectByUseCase(uc ports.UseCase) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metadata))
	for name, meta := range r.metadata {
		if meta.HasUseCase(uc) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SelectByTypes retorna los nombres de los módulos que producen alguno
// de los tipos de evento pedidos, ordenados alfabéticamente.
func (r *ModuleRegistry) SelectByTypes(eventTypes []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0)
	for name, meta := range r.metadata {
		for _, et := range eventTypes {
			if meta.ProducesType(et) {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// List retorna los nombres de todos los módulos registrados.
func (r *ModuleRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetMetadata retorna el metadata de un módulo.
func (r *ModuleRegistry) GetMetadata(name string) (ports.ModuleMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[name]
	return meta, exists
}

// GetAllMetadata retorna el metadata de todos los módulos registrados.
func (r *ModuleRegistry) GetAllMetadata() map[string]ports.ModuleMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Crear copia para evitar race conditions
	result := make(map[string]ports.ModuleMeta, len(r.metadata))
	for name, meta := range r.metadata {
		result[name] = meta
	}

	return result
}

// IsRegistered verifica si un módulo está registrado.
func (r *ModuleRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// Clear elimina todos los módulos registrados (útil para testing).
func (r *ModuleRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[string]ModuleFactory)
	r.metadata = make(map[string]ports.ModuleMeta)
}
