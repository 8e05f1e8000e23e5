// internal/platform/threadpool/threadpool.go
package threadpool

import (
	"context"
	"sync"

	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
)

// ErrShutdown se retorna cuando se intenta enviar trabajo a un pool detenido.
var ErrShutdown = errors.New("threadpool: pool is shut down")

// Handle representa una tarea admitida en el pool. El error de la tarea
// solo se entrega a quien espera sobre el handle; el pool y el resto de
// grupos no se ven afectados por fallos individuales.
type Handle struct {
	group string
	done  chan struct{}
	err   error
}

// Wait bloquea hasta que la tarea termina y retorna su error.
// Un panic dentro de la tarea se recupera y se convierte en error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Done indica si la tarea ya terminó, sin bloquear.
func (h *Handle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Group retorna el nombre del grupo al que pertenece la tarea.
func (h *Handle) Group() string {
	return h.group
}

// Config configura el pool de tareas.
type Config struct {
	// DefaultMax es el límite de concurrencia cuando Submit recibe max <= 0.
	DefaultMax int

	// Logger para trazas de admisión y finalización.
	Logger logx.Logger
}

// Pool gestiona tareas agrupadas con límite de concurrencia por grupo.
// La admisión es bloqueante: cuando un grupo está al límite, Submit espera
// a que termine al menos una tarea del grupo antes de admitir la nueva.
type Pool struct {
	logger     logx.Logger
	defaultMax int

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cond     *sync.Cond
	groups   map[string][]*Handle
	waiting  map[string]int
	shutdown bool
}

// New crea un pool de tareas listo para admitir trabajo.
func New(cfg Config) *Pool {
	if cfg.DefaultMax <= 0 {
		cfg.DefaultMax = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.New()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		logger:     cfg.Logger.With("component", "threadpool"),
		defaultMax: cfg.DefaultMax,
		ctx:        ctx,
		cancel:     cancel,
		groups:     make(map[string][]*Handle),
		waiting:    make(map[string]int),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit registra fn bajo el grupo indicado y la lanza en su propia
// goroutine. Si el grupo ya tiene max tareas vivas, Submit bloquea hasta
// que alguna complete. Con max <= 0 se usa el límite por defecto del pool.
func (p *Pool) Submit(group string, max int, fn func(context.Context) error) (*Handle, error) {
	if group == "" {
		return nil, errors.New("threadpool: empty group name")
	}
	if fn == nil {
		return nil, errors.New("threadpool: nil task")
	}
	if max <= 0 {
		max = p.defaultMax
	}

	h := &Handle{
		group: group,
		done:  make(chan struct{}),
	}

	p.mu.Lock()
	for {
		if p.shutdown {
			// Despierta a quien espere el drenado del grupo: este
			// submit ya no va a admitir trabajo.
			p.cond.Broadcast()
			p.mu.Unlock()
			return nil, ErrShutdown
		}

		p.pruneLocked(group)
		if len(p.groups[group]) < max {
			break
		}

		p.waiting[group]++
		p.cond.Wait()
		p.waiting[group]--
	}
	p.groups[group] = append(p.groups[group], h)
	p.mu.Unlock()

	go p.run(h, fn)

	return h, nil
}

// run ejecuta la tarea y notifica su finalización al pool.
func (p *Pool) run(h *Handle, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			h.err = errors.Errorf("threadpool: task panic in group %q: %v", h.group, r)
			p.logger.Err(h.err, "group", h.group)
		}
		close(h.done)

		p.mu.Lock()
		p.pruneLocked(h.group)
		p.cond.Broadcast()
		p.mu.Unlock()
	}()

	h.err = fn(p.ctx)
}

// pruneLocked elimina del grupo los handles ya completados.
// Requiere p.mu tomado.
func (p *Pool) pruneLocked(group string) {
	handles := p.groups[group]
	if len(handles) == 0 {
		return
	}

	live := handles[:0]
	for _, h := range handles {
		if !h.Done() {
			live = append(live, h)
		}
	}
	if len(live) == 0 {
		delete(p.groups, group)
		return
	}
	p.groups[group] = live
}

// Running retorna el número de tareas vivas en el grupo.
func (p *Pool) Running(group string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked(group)
	return len(p.groups[group])
}

// Queued retorna cuántas llamadas a Submit esperan admisión en el grupo.
func (p *Pool) Queued(group string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.waiting[group]
}

// WaitForCompletion bloquea hasta que el grupo quede vacío: sin tareas
// vivas y sin llamadas a Submit esperando admisión.
func (p *Pool) WaitForCompletion(group string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		p.pruneLocked(group)
		if len(p.groups[group]) == 0 && p.waiting[group] == 0 {
			return
		}
		p.cond.Wait()
	}
}

// WaitAll bloquea hasta que todos los grupos queden vacíos.
func (p *Pool) WaitAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.idleLocked() {
			return
		}
		p.cond.Wait()
	}
}

// idleLocked indica si no queda trabajo vivo ni pendiente de admisión.
// Requiere p.mu tomado.
func (p *Pool) idleLocked() bool {
	for group := range p.groups {
		p.pruneLocked(group)
		if len(p.groups[group]) > 0 {
			return false
		}
	}
	for _, n := range p.waiting {
		if n > 0 {
			return false
		}
	}
	return true
}

// Shutdown detiene la admisión de tareas nuevas. Con wait en true espera
// a que drene el trabajo en curso; con false cancela el contexto del pool
// para que las tareas cooperativas puedan abandonar.
func (p *Pool) Shutdown(wait bool) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.cond.Broadcast()
	p.mu.Unlock()

	if wait {
		p.WaitAll()
		p.cancel()
		p.logger.Debug("pool drained and stopped")
		return
	}

	p.cancel()
	p.logger.Debug("pool stopped without draining")
}
