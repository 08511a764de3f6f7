package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"MomentumRotator/internal/model"
)

// SQLiteRecorder persists history to a SQLite database. Every row carries
// the run id of the process that wrote it.
type SQLiteRecorder struct {
	db    *sql.DB
	mu    sync.Mutex
	runID string
	log   zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP readers query while the cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:    db,
		runID: uuid.NewString(),
		log:   log.With().Str("component", "recorder").Logger(),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Str("run_id", r.runID).Msg("sqlite recorder opened")
	return r, nil
}

// RunID identifies rows written by this process.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			run_id       TEXT NOT NULL,
			source       TEXT,
			prices_json  TEXT NOT NULL,
			data_age_sec REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_ts ON ticks(timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			run_id        TEXT NOT NULL,
			current_asset TEXT,
			leader        TEXT,
			state         TEXT NOT NULL,
			reasons_json  TEXT,
			edge_pct      REAL,
			net_edge_pct  REAL,
			cost_pct      REAL,
			confirm_k     INTEGER,
			confirm_n     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS equity_curve (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			run_id    TEXT NOT NULL,
			asset     TEXT NOT NULL,
			quantity  REAL,
			equity    REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_ts ON equity_curve(timestamp)`,

		`CREATE TABLE IF NOT EXISTS switches (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			run_id       TEXT NOT NULL,
			from_asset   TEXT NOT NULL,
			to_asset     TEXT NOT NULL,
			reason       TEXT NOT NULL,
			equity_after REAL,
			edge_pct     REAL,
			net_edge_pct REAL,
			value_before REAL,
			value_after  REAL,
			cost_paid    REAL,
			price_used   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_switches_ts ON switches(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTick(snap *model.PriceSnapshot, dataAgeSec *float64) error {
	prices, err := json.Marshal(snap.Prices)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.db.Exec(`INSERT INTO ticks
		(timestamp, run_id, source, prices_json, data_age_sec)
		VALUES (?,?,?,?,?)`,
		snap.FetchedAt.UnixMilli(), r.runID, snap.Source, string(prices), orNull(dataAgeSec),
	)
	return err
}

func (r *SQLiteRecorder) RecordDecision(d *model.DecisionOutput) error {
	reasons, err := json.Marshal(d.ReasonStrings())
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.db.Exec(`INSERT INTO decisions
		(timestamp, run_id, current_asset, leader, state, reasons_json,
		 edge_pct, net_edge_pct, cost_pct, confirm_k, confirm_n)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.Time.UnixMilli(), r.runID, d.CurrentAsset, d.Leader, string(d.State), string(reasons),
		orNull(d.EdgePct), orNull(d.NetEdgePct), d.CostPct, d.ConfirmK, d.ConfirmN,
	)
	return err
}

func (r *SQLiteRecorder) RecordEquity(p model.EquityPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO equity_curve
		(timestamp, run_id, asset, quantity, equity)
		VALUES (?,?,?,?,?)`,
		p.Time.UnixMilli(), r.runID, p.Asset, p.Quantity, p.Equity,
	)
	return err
}

func (r *SQLiteRecorder) RecordSwitch(s *model.SwitchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO switches
		(timestamp, run_id, from_asset, to_asset, reason, equity_after,
		 edge_pct, net_edge_pct, value_before, value_after, cost_paid, price_used)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.Time.UnixMilli(), r.runID, s.FromAsset, s.ToAsset, s.Reason, s.EquityAfter,
		orNull(s.EdgePct), orNull(s.NetEdgePct), s.ValueBefore, s.ValueAfter, s.CostPaid, s.PriceUsed,
	)
	return err
}

// latest wraps a query so it returns the newest limit rows in ascending order.
func latest(cols, table string, limit int) (string, []interface{}) {
	if limit <= 0 {
		return fmt.Sprintf(`SELECT %s FROM %s ORDER BY id ASC`, cols, table), nil
	}
	return fmt.Sprintf(`SELECT * FROM (SELECT id, %s FROM %s ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, cols, table),
		[]interface{}{limit}
}

func (r *SQLiteRecorder) LatestEquity(limit int) ([]model.EquityPoint, error) {
	q, args := latest("timestamp, asset, quantity, equity", "equity_curve", limit)
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query equity: %w", err)
	}
	defer rows.Close()

	var out []model.EquityPoint
	for rows.Next() {
		var (
			id, ts int64
			p      model.EquityPoint
			qty    sql.NullFloat64
		)
		dest := []interface{}{&ts, &p.Asset, &qty, &p.Equity}
		if limit > 0 {
			dest = append([]interface{}{&id}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan equity: %w", err)
		}
		p.Time = time.UnixMilli(ts).UTC()
		p.Quantity = qty.Float64
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) LatestSwitches(limit int) ([]model.SwitchRecord, error) {
	q, args := latest(`timestamp, from_asset, to_asset, reason, equity_after, edge_pct, net_edge_pct,
		value_before, value_after, cost_paid, price_used`, "switches", limit)
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query switches: %w", err)
	}
	defer rows.Close()

	var out []model.SwitchRecord
	for rows.Next() {
		var (
			id, ts                                        int64
			s                                             model.SwitchRecord
			equity, edge, net, before, after, cost, price sql.NullFloat64
		)
		dest := []interface{}{&ts, &s.FromAsset, &s.ToAsset, &s.Reason, &equity, &edge, &net, &before, &after, &cost, &price}
		if limit > 0 {
			dest = append([]interface{}{&id}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan switch: %w", err)
		}
		s.Time = time.UnixMilli(ts).UTC()
		s.EquityAfter = equity.Float64
		s.EdgePct = nullable(edge)
		s.NetEdgePct = nullable(net)
		s.ValueBefore = before.Float64
		s.ValueAfter = after.Float64
		s.CostPaid = cost.Float64
		s.PriceUsed = price.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) LatestDecisions(limit int) ([]DecisionRow, error) {
	q, args := latest(`timestamp, run_id, current_asset, leader, state, reasons_json,
		edge_pct, net_edge_pct, cost_pct, confirm_k, confirm_n`, "decisions", limit)
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRow
	for rows.Next() {
		var (
			id, ts             int64
			d                  DecisionRow
			current, leader    sql.NullString
			reasons            sql.NullString
			edge, net, cost    sql.NullFloat64
			confirmK, confirmN sql.NullInt64
		)
		dest := []interface{}{&ts, &d.RunID, &current, &leader, &d.State, &reasons, &edge, &net, &cost, &confirmK, &confirmN}
		if limit > 0 {
			dest = append([]interface{}{&id}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Time = time.UnixMilli(ts).UTC()
		d.Current = current.String
		d.Leader = leader.String
		if reasons.Valid && reasons.String != "" {
			if err := json.Unmarshal([]byte(reasons.String), &d.Reasons); err != nil {
				return nil, fmt.Errorf("decode reasons: %w", err)
			}
		}
		d.EdgePct = nullable(edge)
		d.NetEdgePct = nullable(net)
		d.CostPct = cost.Float64
		d.ConfirmK = int(confirmK.Int64)
		d.ConfirmN = int(confirmN.Int64)
		out = append(out, d)
	}
	return out, rows.Err()
}

func orNull(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
