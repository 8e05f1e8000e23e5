// internal/platform/ui/noop_presenter.go
package ui

// NoopPresenter es una implementación vacía del Presenter
// que no produce ninguna salida. Útil para modo silent o headless.
type NoopPresenter struct{}

// NewNoopPresenter crea una instancia del presenter sin salida
func NewNoopPresenter() *NoopPresenter {
	return &NoopPresenter{}
}

// Start no hace nada
func (n *NoopPresenter) Start(info ScanInfo) {}

// ModuleStarted no hace nada
func (n *NoopPresenter) ModuleStarted(name string) {}

// ModuleFailed no hace nada
func (n *NoopPresenter) ModuleFailed(name, reason string) {}

// EventDiscovered no hace nada
func (n *NoopPresenter) EventDiscovered(eventType, module string, total int) {}

// Info no hace nada
func (n *NoopPresenter) Info(msg string) {}

// Warning no hace nada
func (n *NoopPresenter) Warning(msg string) {}

// Error no hace nada
func (n *NoopPresenter) Error(msg string) {}

// Finish no hace nada
func (n *NoopPresenter) Finish(stats ScanStats) {}

// Close no hace nada
func (n *NoopPresenter) Close() error {
	return nil
}
