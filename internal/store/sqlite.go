package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// SQLiteStore implements PositionStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based position store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Positions and their lifecycle state
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		underlying TEXT NOT NULL,
		strategy TEXT NOT NULL,
		opened_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		closed_at DATETIME,
		realized_pnl REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Option legs, immutable once the position is saved
	CREATE TABLE IF NOT EXISTS legs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id TEXT NOT NULL,
		option_type TEXT NOT NULL,
		action TEXT NOT NULL,
		strike REAL NOT NULL,
		expiry DATETIME NOT NULL,
		quantity INTEGER NOT NULL,
		premium REAL NOT NULL,
		FOREIGN KEY (position_id) REFERENCES positions(id)
	);

	-- Alert rules with their edge-trigger state
	CREATE TABLE IF NOT EXISTS alert_rules (
		id TEXT PRIMARY KEY,
		position_id TEXT NOT NULL,
		name TEXT NOT NULL,
		metric TEXT NOT NULL,
		compare TEXT NOT NULL,
		threshold REAL NOT NULL,
		severity TEXT NOT NULL,
		triggered INTEGER DEFAULT 0,
		FOREIGN KEY (position_id) REFERENCES positions(id)
	);

	-- Append-only P&L history
	CREATE TABLE IF NOT EXISTS pnl_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		unrealized_pnl REAL NOT NULL,
		FOREIGN KEY (position_id) REFERENCES positions(id)
	);

	-- Emitted alert events
	CREATE TABLE IF NOT EXISTS alert_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		threshold REAL NOT NULL,
		severity TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (position_id) REFERENCES positions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
	CREATE INDEX IF NOT EXISTS idx_positions_underlying ON positions(underlying);
	CREATE INDEX IF NOT EXISTS idx_legs_position ON legs(position_id);
	CREATE INDEX IF NOT EXISTS idx_pnl_position ON pnl_history(position_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_position ON alert_events(position_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePosition writes the position with its legs and alert rules.
// Legs and rules are replaced wholesale; history is written only
// through AppendPnLSample.
func (s *SQLiteStore) SavePosition(ctx context.Context, pos *models.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("save_position", pos.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions (id, underlying, strategy, opened_at, status, closed_at, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.Spread.Underlying, string(pos.Spread.Strategy),
		pos.OpenedAt, string(pos.Status), pos.ClosedAt, pos.RealizedPnL)
	if err != nil {
		return errors.NewStoreError("save_position", pos.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM legs WHERE position_id = ?`, pos.ID); err != nil {
		return errors.NewStoreError("save_position", pos.ID, err)
	}
	for _, leg := range pos.Spread.Legs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO legs (position_id, option_type, action, strike, expiry, quantity, premium)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pos.ID, string(leg.Type), string(leg.Action), leg.Strike, leg.Expiry, leg.Quantity, leg.Premium)
		if err != nil {
			return errors.NewStoreError("save_position", pos.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_rules WHERE position_id = ?`, pos.ID); err != nil {
		return errors.NewStoreError("save_position", pos.ID, err)
	}
	for _, rule := range pos.AlertRules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alert_rules (id, position_id, name, metric, compare, threshold, severity, triggered)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.ID, pos.ID, rule.Name, string(rule.Metric), string(rule.Compare),
			rule.Threshold, string(rule.Severity), boolToInt(rule.Triggered))
		if err != nil {
			return errors.NewStoreError("save_position", pos.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("save_position", pos.ID, err)
	}
	return nil
}

// GetPosition loads a position with legs, rules and P&L history.
func (s *SQLiteStore) GetPosition(ctx context.Context, id string) (*models.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, underlying, strategy, opened_at, status, closed_at, realized_pnl
		FROM positions WHERE id = ?`, id)

	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrPositionNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.NewStoreError("get_position", id, err)
	}

	if err := s.loadLegs(ctx, pos); err != nil {
		return nil, err
	}
	if err := s.loadRules(ctx, pos); err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// ListPositions loads positions matching the filter, legs and rules
// included, history omitted for bulk listing.
func (s *SQLiteStore) ListPositions(ctx context.Context, filter PositionFilter) ([]*models.Position, error) {
	query := `SELECT id, underlying, strategy, opened_at, status, closed_at, realized_pnl FROM positions`
	var conds []string
	var args []interface{}

	if filter.Underlying != "" {
		conds = append(conds, "underlying = ?")
		args = append(args, filter.Underlying)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.OpenedFrom.IsZero() {
		conds = append(conds, "opened_at >= ?")
		args = append(args, filter.OpenedFrom)
	}
	if !filter.OpenedTo.IsZero() {
		conds = append(conds, "opened_at <= ?")
		args = append(args, filter.OpenedTo)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY opened_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("list_positions", "", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errors.NewStoreError("list_positions", "", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("list_positions", "", err)
	}

	for _, pos := range positions {
		if err := s.loadLegs(ctx, pos); err != nil {
			return nil, err
		}
		if err := s.loadRules(ctx, pos); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

// UpdateStatus persists a lifecycle transition.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, pos *models.Position) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET status = ?, closed_at = ?, realized_pnl = ? WHERE id = ?`,
		string(pos.Status), pos.ClosedAt, pos.RealizedPnL, pos.ID)
	if err != nil {
		return errors.NewStoreError("update_status", pos.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrPositionNotFound, "id %s", pos.ID)
	}
	return nil
}

// AppendPnLSample appends one history sample. Insert-only, never updated.
func (s *SQLiteStore) AppendPnLSample(ctx context.Context, positionID string, sample models.PnLSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pnl_history (position_id, timestamp, unrealized_pnl) VALUES (?, ?, ?)`,
		positionID, sample.Timestamp, sample.UnrealizedPnL)
	if err != nil {
		return errors.NewStoreError("append_pnl", positionID, err)
	}
	return nil
}

// SaveRuleState persists the rules' edge-trigger flags after a pass.
func (s *SQLiteStore) SaveRuleState(ctx context.Context, positionID string, rules []models.AlertRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("save_rule_state", positionID, err)
	}
	defer tx.Rollback()

	for _, rule := range rules {
		_, err := tx.ExecContext(ctx,
			`UPDATE alert_rules SET triggered = ? WHERE id = ? AND position_id = ?`,
			boolToInt(rule.Triggered), rule.ID, positionID)
		if err != nil {
			return errors.NewStoreError("save_rule_state", positionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("save_rule_state", positionID, err)
	}
	return nil
}

// LogAlert records an emitted alert event.
func (s *SQLiteStore) LogAlert(ctx context.Context, event models.AlertEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events (position_id, rule_id, rule_name, metric, value, threshold, severity, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.PositionID, event.RuleID, event.RuleName, string(event.Metric),
		event.Value, event.Threshold, string(event.Severity), event.Timestamp)
	if err != nil {
		return errors.NewStoreError("log_alert", event.PositionID, err)
	}
	return nil
}

// GetAlerts returns the most recent alert events for a position.
func (s *SQLiteStore) GetAlerts(ctx context.Context, positionID string, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT position_id, rule_id, rule_name, metric, value, threshold, severity, timestamp
		FROM alert_events WHERE position_id = ? ORDER BY timestamp DESC LIMIT ?`,
		positionID, limit)
	if err != nil {
		return nil, errors.NewStoreError("get_alerts", positionID, err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var ev models.AlertEvent
		var metric, severity string
		if err := rows.Scan(&ev.PositionID, &ev.RuleID, &ev.RuleName, &metric,
			&ev.Value, &ev.Threshold, &severity, &ev.Timestamp); err != nil {
			return nil, errors.NewStoreError("get_alerts", positionID, err)
		}
		ev.Metric = models.AlertMetric(metric)
		ev.Severity = models.Severity(severity)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var pos models.Position
	var underlying, strategy, status string
	var closedAt sql.NullTime
	var realized sql.NullFloat64

	err := row.Scan(&pos.ID, &underlying, &strategy, &pos.OpenedAt, &status, &closedAt, &realized)
	if err != nil {
		return nil, err
	}

	pos.Spread.Underlying = underlying
	pos.Spread.Strategy = models.StrategyType(strategy)
	pos.Status = models.PositionStatus(status)
	if closedAt.Valid {
		t := closedAt.Time
		pos.ClosedAt = &t
	}
	if realized.Valid {
		v := realized.Float64
		pos.RealizedPnL = &v
	}
	return &pos, nil
}

func (s *SQLiteStore) loadLegs(ctx context.Context, pos *models.Position) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT option_type, action, strike, expiry, quantity, premium
		FROM legs WHERE position_id = ? ORDER BY id`, pos.ID)
	if err != nil {
		return errors.NewStoreError("load_legs", pos.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg models.OptionLeg
		var optType, action string
		if err := rows.Scan(&optType, &action, &leg.Strike, &leg.Expiry, &leg.Quantity, &leg.Premium); err != nil {
			return errors.NewStoreError("load_legs", pos.ID, err)
		}
		leg.Underlying = pos.Spread.Underlying
		leg.Type = models.OptionType(optType)
		leg.Action = models.Action(action)
		pos.Spread.Legs = append(pos.Spread.Legs, leg)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadRules(ctx context.Context, pos *models.Position) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, metric, compare, threshold, severity, triggered
		FROM alert_rules WHERE position_id = ?`, pos.ID)
	if err != nil {
		return errors.NewStoreError("load_rules", pos.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule models.AlertRule
		var metric, compare, severity string
		var triggered int
		if err := rows.Scan(&rule.ID, &rule.Name, &metric, &compare, &rule.Threshold, &severity, &triggered); err != nil {
			return errors.NewStoreError("load_rules", pos.ID, err)
		}
		rule.Metric = models.AlertMetric(metric)
		rule.Compare = models.Comparator(compare)
		rule.Severity = models.Severity(severity)
		rule.Triggered = triggered != 0
		pos.AlertRules = append(pos.AlertRules, rule)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadHistory(ctx context.Context, pos *models.Position) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, unrealized_pnl
		FROM pnl_history WHERE position_id = ? ORDER BY timestamp`, pos.ID)
	if err != nil {
		return errors.NewStoreError("load_history", pos.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sample models.PnLSample
		if err := rows.Scan(&sample.Timestamp, &sample.UnrealizedPnL); err != nil {
			return errors.NewStoreError("load_history", pos.ID, err)
		}
		pos.PnLHistory = append(pos.PnLHistory, sample)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
