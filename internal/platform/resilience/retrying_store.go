// internal/platform/resilience/retrying_store.go
package resilience

import (
	"context"
	"time"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/logx"
)

// RetryingStore envuelve un ports.Storage con recuperación ante fallos.
// Las escrituras obligatorias del flujo de escaneo reintentan una vez
// tras reconectar; el log persistido, que es best-effort, se protege con
// un circuit breaker para no martillear un almacenamiento caído con
// escrituras que van a fallar.
type RetryingStore struct {
	inner  ports.Storage
	logCB  *CircuitBreaker
	logger logx.Logger
}

// NewRetryingStore crea un RetryingStore sobre el almacenamiento dado.
func NewRetryingStore(inner ports.Storage, logger logx.Logger) *RetryingStore {
	return &RetryingStore{
		inner:  inner,
		logCB:  NewCircuitBreaker(3, 30*time.Second, 2),
		logger: logger.With("component", "retrying-store"),
	}
}

// withRetry ejecuta una escritura obligatoria. Si falla, intenta
// reconectar y repite la operación una única vez. El segundo fallo se
// propaga al llamante, que decide el destino del escaneo.
func (s *RetryingStore) withRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	// Cancelación no es un fallo de almacenamiento: no reintentar
	if ctx.Err() != nil {
		return err
	}

	s.logger.Warn("store write failed, attempting reconnect",
		"op", op,
		"error", err.Error(),
	)

	if rerr := s.inner.Reconnect(); rerr != nil {
		s.logger.Err(rerr, "op", op, "stage", "reconnect")
		return err
	}
	s.logCB.Reset()

	if err := fn(); err != nil {
		return err
	}

	s.logger.Info("store write recovered after reconnect", "op", op)
	return nil
}

// CreateScanInstance registra un escaneo nuevo, con retry tras reconexión.
func (s *RetryingStore) CreateScanInstance(ctx context.Context, scan *domain.Scan) error {
	return s.withRetry(ctx, "create_scan", func() error {
		return s.inner.CreateScanInstance(ctx, scan)
	})
}

// ScanInstance recupera un escaneo por su ID.
func (s *RetryingStore) ScanInstance(ctx context.Context, scanID string) (*domain.Scan, error) {
	return s.inner.ScanInstance(ctx, scanID)
}

// ListScans lista los escaneos almacenados.
func (s *RetryingStore) ListScans(ctx context.Context) ([]*domain.Scan, error) {
	return s.inner.ListScans(ctx)
}

// SetScanStatus actualiza el estado de un escaneo, con retry tras reconexión.
func (s *RetryingStore) SetScanStatus(ctx context.Context, scanID string, status domain.ScanStatus) error {
	return s.withRetry(ctx, "set_status", func() error {
		return s.inner.SetScanStatus(ctx, scanID, status)
	})
}

// ReadScanStatus lee el estado persistido de un escaneo.
func (s *RetryingStore) ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error) {
	return s.inner.ReadScanStatus(ctx, scanID)
}

// StoreEvent persiste un evento, con retry tras reconexión. Un evento
// que no se puede almacenar no debe propagarse a los módulos, así que
// el error llega al orquestador sin amortiguar.
func (s *RetryingStore) StoreEvent(ctx context.Context, scanID string, ev *domain.Event) error {
	return s.withRetry(ctx, "store_event", func() error {
		return s.inner.StoreEvent(ctx, scanID, ev)
	})
}

// QueryEvents recupera eventos de un escaneo.
func (s *RetryingStore) QueryEvents(ctx context.Context, scanID string, q ports.EventQuery) ([]*domain.Event, error) {
	return s.inner.QueryEvents(ctx, scanID, q)
}

// SummarizeEvents cuenta los eventos de un escaneo por tipo.
func (s *RetryingStore) SummarizeEvents(ctx context.Context, scanID string) (map[string]int, error) {
	return s.inner.SummarizeEvents(ctx, scanID)
}

// SetFalsePositive marca o desmarca un evento como falso positivo,
// con retry tras reconexión.
func (s *RetryingStore) SetFalsePositive(ctx context.Context, scanID, eventHash string, fp bool) error {
	return s.withRetry(ctx, "set_false_positive", func() error {
		return s.inner.SetFalsePositive(ctx, scanID, eventHash, fp)
	})
}

// CreateCorrelationResult persiste un resultado de correlación, con
// retry tras reconexión.
func (s *RetryingStore) CreateCorrelationResult(ctx context.Context, scanID string, result *domain.CorrelationResult) error {
	return s.withRetry(ctx, "create_correlation", func() error {
		return s.inner.CreateCorrelationResult(ctx, scanID, result)
	})
}

// Correlations recupera los resultados de correlación de un escaneo.
func (s *RetryingStore) Correlations(ctx context.Context, scanID string) ([]*domain.CorrelationResult, error) {
	return s.inner.Correlations(ctx, scanID)
}

// SummarizeCorrelations cuenta los resultados de correlación por riesgo.
func (s *RetryingStore) SummarizeCorrelations(ctx context.Context, scanID string) (map[domain.Risk]int, error) {
	return s.inner.SummarizeCorrelations(ctx, scanID)
}

// LogScanEvent escribe una línea del log persistido. Best-effort: los
// fallos alimentan el circuit breaker y se absorben aquí; con el
// circuito abierto las líneas se descartan hasta que el almacenamiento
// se recupere.
func (s *RetryingStore) LogScanEvent(ctx context.Context, scanID, component, level, message string) error {
	if !s.logCB.Allow() {
		return nil
	}

	if err := s.inner.LogScanEvent(ctx, scanID, component, level, message); err != nil {
		s.logCB.RecordFailure()
		s.logger.Debug("scan log write failed",
			"component", component,
			"error", err.Error(),
		)
		return nil
	}

	s.logCB.RecordSuccess()
	return nil
}

// ScanLogs recupera el log persistido de un escaneo.
func (s *RetryingStore) ScanLogs(ctx context.Context, scanID string) ([]ports.ScanLogEntry, error) {
	return s.inner.ScanLogs(ctx, scanID)
}

// Reconnect restablece la conexión del almacenamiento subyacente.
func (s *RetryingStore) Reconnect() error {
	if err := s.inner.Reconnect(); err != nil {
		return err
	}
	s.logCB.Reset()
	return nil
}

// Close cierra el almacenamiento subyacente.
func (s *RetryingStore) Close() error {
	return s.inner.Close()
}
