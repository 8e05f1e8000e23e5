// internal/adapters/storage/sqlite/sqlite.go

// Package sqlite implementa el port de almacenamiento sobre SQLite.
// Una base por instalación, un fichero en disco o ":memory:" para
// pruebas y escaneos efímeros.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
)

// memoryPath es el valor de ruta que selecciona una base en memoria.
const memoryPath = ":memory:"

// Store es el adaptador SQLite de ports.Storage.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	logger logx.Logger
}

// compile-time check
var _ ports.Storage = (*Store)(nil)

// New abre (o crea) la base de datos y aplica el esquema. La ruta
// ":memory:" crea una base efímera de conexión única.
func New(path string, logger logx.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.Wrap(errors.ErrValidation, "storage path is required")
	}
	if logger == nil {
		logger = logx.New()
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "cannot create storage directory for %s", path)
		}
	}

	db, err := open(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite"),
	}
	s.logger.Debug("storage ready", "path", path)
	return s, nil
}

// open abre la conexión y deja el esquema aplicado. El esquema es
// idempotente, así que abrir una base existente no la altera.
func open(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open database %s", path)
	}

	if path == memoryPath {
		// Cada conexión del pool vería una base en memoria distinta
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "cannot reach database %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cannot apply schema")
	}
	if err := seedEventTypes(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// seedEventTypes puebla el vocabulario de tipos de evento.
func seedEventTypes(db *sql.DB) error {
	for _, info := range domain.KnownEventTypes() {
		entity := 0
		if info.Entity {
			entity = 1
		}
		_, err := db.Exec(
			`INSERT OR IGNORE INTO tbl_event_types (event, event_descr, event_entity) VALUES (?, ?, ?)`,
			info.Type, info.Description, entity,
		)
		if err != nil {
			return errors.Wrapf(err, "cannot seed event type %s", info.Type)
		}
	}
	return nil
}

// conn retorna el handle vigente. Reconnect lo sustituye bajo el lock
// de escritura, así que las operaciones leen bajo el de lectura.
func (s *Store) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// CreateScanInstance registra un escaneo nuevo. Un guid repetido es un
// error del llamante, no una sobreescritura silenciosa.
func (s *Store) CreateScanInstance(ctx context.Context, scan *domain.Scan) error {
	res, err := s.conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO tbl_scan_instance (guid, name, seed_target, target_type, created, started, ended, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.Name, scan.Target, scan.TargetType.String(),
		toMillis(scan.Created), toMillis(scan.Started), toMillis(scan.Ended), scan.Status.String(),
	)
	if err != nil {
		return errors.Wrapf(err, "cannot create scan %s", scan.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrAlreadyExists, "scan %s", scan.ID)
	}
	return nil
}

// ScanInstance recupera un escaneo por su ID.
func (s *Store) ScanInstance(ctx context.Context, scanID string) (*domain.Scan, error) {
	row := s.conn().QueryRowContext(ctx,
		`SELECT guid, name, seed_target, target_type, created, started, ended, status
		 FROM tbl_scan_instance WHERE guid = ?`, scanID)

	scan, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "scan %s", scanID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load scan %s", scanID)
	}
	return scan, nil
}

// ListScans lista los escaneos almacenados, el más reciente primero.
func (s *Store) ListScans(ctx context.Context) ([]*domain.Scan, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT guid, name, seed_target, target_type, created, started, ended, status
		 FROM tbl_scan_instance ORDER BY created DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list scans")
	}
	defer rows.Close()

	var scans []*domain.Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read scan row")
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// rowScanner cubre sql.Row y sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.Scan, error) {
	var (
		scan       domain.Scan
		targetType string
		status     string
		created    int64
		started    int64
		ended      int64
	)
	if err := row.Scan(&scan.ID, &scan.Name, &scan.Target, &targetType,
		&created, &started, &ended, &status); err != nil {
		return nil, err
	}
	scan.TargetType = domain.TargetType(targetType)
	scan.Status = domain.ScanStatus(status)
	scan.Created = fromMillis(created)
	scan.Started = fromMillis(started)
	scan.Ended = fromMillis(ended)
	return &scan, nil
}

// SetScanStatus actualiza el estado de un escaneo, estampando el
// arranque al entrar en RUNNING y el cierre al llegar a un terminal.
func (s *Store) SetScanStatus(ctx context.Context, scanID string, status domain.ScanStatus) error {
	now := time.Now().UnixMilli()

	var (
		res sql.Result
		err error
	)
	switch {
	case status == domain.ScanStatusRunning:
		res, err = s.conn().ExecContext(ctx,
			`UPDATE tbl_scan_instance SET status = ?, started = ? WHERE guid = ?`,
			status.String(), now, scanID)
	case status.IsTerminal():
		res, err = s.conn().ExecContext(ctx,
			`UPDATE tbl_scan_instance SET status = ?, ended = ? WHERE guid = ?`,
			status.String(), now, scanID)
	default:
		res, err = s.conn().ExecContext(ctx,
			`UPDATE tbl_scan_instance SET status = ? WHERE guid = ?`,
			status.String(), scanID)
	}
	if err != nil {
		return errors.Wrapf(err, "cannot set status %s for scan %s", status, scanID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "scan %s", scanID)
	}
	return nil
}

// ReadScanStatus lee el estado persistido actual.
func (s *Store) ReadScanStatus(ctx context.Context, scanID string) (domain.ScanStatus, error) {
	var status string
	err := s.conn().QueryRowContext(ctx,
		`SELECT status FROM tbl_scan_instance WHERE guid = ?`, scanID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", errors.Wrapf(errors.ErrNotFound, "scan %s", scanID)
	}
	if err != nil {
		return "", errors.Wrapf(err, "cannot read status for scan %s", scanID)
	}
	return domain.ScanStatus(status), nil
}

// StoreEvent persiste un evento. Idempotente sobre (escaneo, hash):
// reinsertar el mismo evento no duplica filas ni falla.
func (s *Store) StoreEvent(ctx context.Context, scanID string, ev *domain.Event) error {
	fp := 0
	if ev.FalsePositive {
		fp = 1
	}
	_, err := s.conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO tbl_scan_results
		 (scan_instance_id, hash, type, generated, data, module, source_event_hash, confidence, visibility, risk, false_positive)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scanID, ev.Hash(), ev.Type, toMillis(ev.Generated), ev.Data, ev.Module,
		ev.SourceEventHash, ev.Confidence, ev.Visibility, ev.Risk, fp,
	)
	if err != nil {
		return errors.Wrapf(err, "cannot store %s event for scan %s", ev.Type, scanID)
	}
	return nil
}

// QueryEvents recupera eventos en orden de generación, con los filtros
// de la consulta aplicados en SQL.
func (s *Store) QueryEvents(ctx context.Context, scanID string, q ports.EventQuery) ([]*domain.Event, error) {
	query := `SELECT type, data, module, source_event_hash, generated, confidence, visibility, risk, false_positive
	          FROM tbl_scan_results WHERE scan_instance_id = ?`
	args := []any{scanID}

	if q.Type != "" {
		query += " AND type = ?"
		args = append(args, q.Type)
	}
	if q.SourceModule != "" {
		query += " AND module = ?"
		args = append(args, q.SourceModule)
	}
	if q.FilterFalsePositives {
		query += " AND false_positive = 0"
	}
	query += " ORDER BY rowid"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot query events for scan %s", scanID)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var (
			eventType, data, module, sourceHash string
			generated                           int64
			confidence, visibility, risk, fp    int
		)
		if err := rows.Scan(&eventType, &data, &module, &sourceHash,
			&generated, &confidence, &visibility, &risk, &fp); err != nil {
			return nil, errors.Wrap(err, "cannot read event row")
		}
		events = append(events, domain.RestoreEvent(eventType, data, module, sourceHash,
			fromMillis(generated), confidence, visibility, risk, fp != 0))
	}
	return events, rows.Err()
}

// SummarizeEvents cuenta los eventos de un escaneo por tipo.
func (s *Store) SummarizeEvents(ctx context.Context, scanID string) (map[string]int, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT type, COUNT(*) FROM tbl_scan_results WHERE scan_instance_id = ? GROUP BY type`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot summarize events for scan %s", scanID)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var (
			eventType string
			count     int
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, errors.Wrap(err, "cannot read summary row")
		}
		summary[eventType] = count
	}
	return summary, rows.Err()
}

// SetFalsePositive marca o desmarca un evento como falso positivo.
func (s *Store) SetFalsePositive(ctx context.Context, scanID, eventHash string, fp bool) error {
	value := 0
	if fp {
		value = 1
	}
	res, err := s.conn().ExecContext(ctx,
		`UPDATE tbl_scan_results SET false_positive = ? WHERE scan_instance_id = ? AND hash = ?`,
		value, scanID, eventHash)
	if err != nil {
		return errors.Wrapf(err, "cannot flag event %s", eventHash)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "event %s in scan %s", eventHash, scanID)
	}
	return nil
}

// CreateCorrelationResult persiste un hallazgo y sus eventos
// contribuyentes en una transacción.
func (s *Store) CreateCorrelationResult(ctx context.Context, scanID string, result *domain.CorrelationResult) error {
	tx, err := s.conn().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "cannot begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tbl_scan_correlation_results (id, scan_instance_id, title, rule_id, rule_name, rule_risk, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, scanID, result.Title, result.RuleID, result.RuleName,
		result.RuleRisk.String(), toMillis(result.Created),
	)
	if err != nil {
		return errors.Wrapf(err, "cannot store correlation result for rule %s", result.RuleID)
	}

	for _, hash := range result.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tbl_scan_correlation_results_events (correlation_id, event_hash) VALUES (?, ?)`,
			result.ID, hash); err != nil {
			return errors.Wrapf(err, "cannot link event %s to correlation %s", hash, result.ID)
		}
	}

	return tx.Commit()
}

// Correlations recupera los hallazgos de un escaneo con sus eventos.
func (s *Store) Correlations(ctx context.Context, scanID string) ([]*domain.CorrelationResult, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT r.id, r.title, r.rule_id, r.rule_name, r.rule_risk, r.created, e.event_hash
		 FROM tbl_scan_correlation_results r
		 LEFT JOIN tbl_scan_correlation_results_events e ON e.correlation_id = r.id
		 WHERE r.scan_instance_id = ?
		 ORDER BY r.rowid, e.rowid`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot query correlations for scan %s", scanID)
	}
	defer rows.Close()

	var (
		results []*domain.CorrelationResult
		byID    = make(map[string]*domain.CorrelationResult)
	)
	for rows.Next() {
		var (
			id, title, ruleID, ruleName, risk string
			created                           int64
			eventHash                         sql.NullString
		)
		if err := rows.Scan(&id, &title, &ruleID, &ruleName, &risk, &created, &eventHash); err != nil {
			return nil, errors.Wrap(err, "cannot read correlation row")
		}

		result, ok := byID[id]
		if !ok {
			result = &domain.CorrelationResult{
				ID:       id,
				Title:    title,
				RuleID:   ruleID,
				RuleName: ruleName,
				RuleRisk: domain.Risk(risk),
				Created:  fromMillis(created),
			}
			byID[id] = result
			results = append(results, result)
		}
		if eventHash.Valid {
			result.Events = append(result.Events, eventHash.String)
		}
	}
	return results, rows.Err()
}

// SummarizeCorrelations cuenta los hallazgos de un escaneo por riesgo.
func (s *Store) SummarizeCorrelations(ctx context.Context, scanID string) (map[domain.Risk]int, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT rule_risk, COUNT(*) FROM tbl_scan_correlation_results
		 WHERE scan_instance_id = ? GROUP BY rule_risk`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot summarize correlations for scan %s", scanID)
	}
	defer rows.Close()

	summary := make(map[domain.Risk]int)
	for rows.Next() {
		var (
			risk  string
			count int
		)
		if err := rows.Scan(&risk, &count); err != nil {
			return nil, errors.Wrap(err, "cannot read correlation summary row")
		}
		summary[domain.Risk(risk)] = count
	}
	return summary, rows.Err()
}

// LogScanEvent añade una línea al log persistido del escaneo.
func (s *Store) LogScanEvent(ctx context.Context, scanID, component, level, message string) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT INTO tbl_scan_log (scan_instance_id, generated, component, type, message)
		 VALUES (?, ?, ?, ?, ?)`,
		scanID, time.Now().UnixMilli(), component, level, message)
	if err != nil {
		return errors.Wrapf(err, "cannot write scan log for %s", scanID)
	}
	return nil
}

// ScanLogs recupera el log persistido de un escaneo en orden de escritura.
func (s *Store) ScanLogs(ctx context.Context, scanID string) ([]ports.ScanLogEntry, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT generated, component, type, message FROM tbl_scan_log
		 WHERE scan_instance_id = ? ORDER BY rowid`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot query scan log for %s", scanID)
	}
	defer rows.Close()

	var entries []ports.ScanLogEntry
	for rows.Next() {
		var (
			entry     ports.ScanLogEntry
			generated int64
		)
		if err := rows.Scan(&generated, &entry.Component, &entry.Level, &entry.Message); err != nil {
			return nil, errors.Wrap(err, "cannot read scan log row")
		}
		entry.Generated = fromMillis(generated)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Reconnect cierra el handle actual y abre uno nuevo sobre la misma
// ruta. Una base en memoria renace vacía: el esquema se reaplica al
// abrir.
func (s *Store) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
	}
	db, err := open(s.path)
	if err != nil {
		return errors.Wrap(err, "reconnect failed")
	}
	s.db = db
	s.logger.Warn("storage reconnected", "path", s.path)
	return nil
}

// Close cierra la conexión con la base de datos.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
