// internal/platform/logx/queue.go
package logx

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Queued es un Logger para escaneos multi-worker: los productores
// formatean su línea y la encolan en un canal acotado sin bloquear;
// un único consumidor es dueño del writer y escribe en serie. Dos
// workers nunca entrelazan bytes en la salida. Si la cola está llena
// la línea se descarta y se cuenta: el logging es best-effort y nunca
// frena el escaneo.
type Queued struct {
	mu    sync.Mutex
	lvl   Level
	scope []string
	s     *sink
}

// sink es el consumidor único compartido por todos los clones With().
type sink struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan string
	done    chan struct{}
	w       io.Writer
	dropped atomic.Uint64
}

// NewQueued crea un logger encolado sobre el writer dado. buffer acota
// la cola de líneas pendientes; con buffer <= 0 se usa 1024.
func NewQueued(w io.Writer, buffer int) *Queued {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &sink{
		ch:   make(chan string, buffer),
		done: make(chan struct{}),
		w:    w,
	}
	go s.run()
	return &Queued{
		lvl: parseLevel(os.Getenv("NOCTUA_LOG_LEVEL")),
		s:   s,
	}
}

func (k *sink) run() {
	for line := range k.ch {
		fmt.Fprintln(k.w, line)
	}
	close(k.done)
}

func (k *sink) enqueue(line string) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		k.dropped.Add(1)
		return
	}
	select {
	case k.ch <- line:
	default:
		k.dropped.Add(1)
	}
}

func (k *sink) close() {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		<-k.done
		return
	}
	k.closed = true
	close(k.ch)
	k.mu.Unlock()
	<-k.done
}

func (q *Queued) With(kv ...any) Logger {
	return &Queued{
		lvl:   q.lvl,
		scope: append(append([]string{}, q.scope...), kvPairs(kv...)...),
		s:     q.s,
	}
}

func (q *Queued) SetLevel(lvl Level) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lvl = lvl
}

func (q *Queued) Debug(msg string, kv ...any) { q.log(LevelDebug, "DBG", msg, kv...) }
func (q *Queued) Info(msg string, kv ...any)  { q.log(LevelInfo, "INF", msg, kv...) }
func (q *Queued) Warn(msg string, kv ...any)  { q.log(LevelWarn, "WRN", msg, kv...) }
func (q *Queued) Err(err error, kv ...any) {
	if err == nil {
		return
	}
	kv = append([]any{"error", err.Error()}, kv...)
	q.log(LevelError, "ERR", "", kv...)
}

func (q *Queued) log(l Level, tag, msg string, kv ...any) {
	q.mu.Lock()
	lvl := q.lvl
	q.mu.Unlock()
	if l < lvl {
		return
	}
	q.s.enqueue(formatLine(q.scope, tag, msg, kv...))
}

// Close drena la cola y espera a que el consumidor termine. Idempotente.
func (q *Queued) Close() {
	q.s.close()
}

// Dropped retorna cuántas líneas se descartaron por cola llena.
func (q *Queued) Dropped() uint64 {
	return q.s.dropped.Load()
}
