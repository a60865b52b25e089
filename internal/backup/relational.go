package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/weighcheck/weighcheck/internal/platform/db"
	"github.com/weighcheck/weighcheck/internal/weighing"
)

// DB is the subset of *pgxpool.Pool the relational transport uses.
type DB interface {
	db.TxBeginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the transport's tables.
const Schema = `
CREATE TABLE IF NOT EXISTS weighcheck_records (
    namespace               TEXT        NOT NULL,
    id                      TEXT        NOT NULL,
    recorded_at             TIMESTAMPTZ NOT NULL,
    supplier                TEXT        NOT NULL,
    product                 TEXT        NOT NULL,
    batch                   TEXT        NOT NULL DEFAULT '',
    expiration_date         TEXT        NOT NULL DEFAULT '',
    production_date         TEXT        NOT NULL DEFAULT '',
    gross_weight            NUMERIC     NOT NULL,
    note_weight             NUMERIC     NOT NULL,
    net_weight              NUMERIC     NOT NULL,
    tara_total              NUMERIC     NOT NULL,
    box_qty                 INTEGER     NOT NULL,
    box_unit_tara           NUMERIC     NOT NULL,
    status                  TEXT        NOT NULL,
    evidence                TEXT        NOT NULL DEFAULT '',
    ai_analysis             TEXT        NOT NULL DEFAULT '',
    recommended_temperature TEXT        NOT NULL DEFAULT '',
    store                   TEXT        NOT NULL DEFAULT '',
    PRIMARY KEY (namespace, id)
);
CREATE TABLE IF NOT EXISTS weighcheck_state (
    namespace  TEXT        NOT NULL,
    key        TEXT        NOT NULL,
    value      JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (namespace, key)
);`

const (
	stateMeta      = "meta"
	stateProfile   = "profile"
	stateKnowledge = "knowledge"
	stateTheme     = "theme"
)

// recordRow is a record as stored in weighcheck_records.
type recordRow struct {
	ID                     string
	RecordedAt             time.Time
	Supplier               string
	Product                string
	Batch                  string
	ExpirationDate         string
	ProductionDate         string
	GrossWeight            float64
	NoteWeight             float64
	NetWeight              float64
	TaraTotal              float64
	BoxQty                 int
	BoxUnitTara            float64
	Status                 string
	Evidence               string
	AIAnalysis             string
	RecommendedTemperature string
	Store                  string
}

var recordColumns = []string{
	"id", "recorded_at", "supplier", "product", "batch", "expiration_date", "production_date",
	"gross_weight", "note_weight", "net_weight", "tara_total", "box_qty", "box_unit_tara",
	"status", "evidence", "ai_analysis", "recommended_temperature", "store",
}

func recordToRow(rec weighing.Record) recordRow {
	return recordRow{
		ID:                     rec.ID,
		RecordedAt:             rec.Timestamp.UTC(),
		Supplier:               rec.Supplier,
		Product:                rec.Product,
		Batch:                  rec.Batch,
		ExpirationDate:         rec.ExpirationDate,
		ProductionDate:         rec.ProductionDate,
		GrossWeight:            rec.GrossWeight,
		NoteWeight:             rec.NoteWeight,
		NetWeight:              rec.NetWeight,
		TaraTotal:              rec.TaraTotal,
		BoxQty:                 rec.Boxes.Qty,
		BoxUnitTara:            rec.Boxes.UnitTara,
		Status:                 string(rec.Status),
		Evidence:               rec.Evidence,
		AIAnalysis:             rec.AIAnalysis,
		RecommendedTemperature: rec.RecommendedTemperature,
		Store:                  rec.Store,
	}
}

func rowToRecord(row recordRow) weighing.Record {
	return weighing.Record{
		ID:                     row.ID,
		Timestamp:              row.RecordedAt.UTC(),
		Supplier:               row.Supplier,
		Product:                row.Product,
		Batch:                  row.Batch,
		ExpirationDate:         row.ExpirationDate,
		ProductionDate:         row.ProductionDate,
		GrossWeight:            row.GrossWeight,
		NoteWeight:             row.NoteWeight,
		NetWeight:              row.NetWeight,
		TaraTotal:              row.TaraTotal,
		Boxes:                  weighing.Boxes{Qty: row.BoxQty, UnitTara: row.BoxUnitTara},
		Status:                 weighing.Status(row.Status),
		Evidence:               row.Evidence,
		AIAnalysis:             row.AIAnalysis,
		RecommendedTemperature: row.RecommendedTemperature,
		Store:                  row.Store,
	}
}

type envelopeMeta struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// RelationalTransport mirrors the envelope into PostgreSQL tables.
type RelationalTransport struct {
	db        DB
	namespace string
}

// NewRelationalTransport scopes the transport to one station namespace.
func NewRelationalTransport(pool DB, namespace string) *RelationalTransport {
	return &RelationalTransport{db: pool, namespace: namespace}
}

// Name implements Transport.
func (t *RelationalTransport) Name() string { return "relational" }

// EnsureSchema creates the tables when missing.
func (t *RelationalTransport) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("backup: ensure schema: %w", err)
	}
	return nil
}

const upsertRecordSQL = `INSERT INTO weighcheck_records (
    namespace, id, recorded_at, supplier, product, batch, expiration_date, production_date,
    gross_weight, note_weight, net_weight, tara_total, box_qty, box_unit_tara,
    status, evidence, ai_analysis, recommended_temperature, store
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (namespace, id) DO UPDATE SET
    recorded_at = EXCLUDED.recorded_at,
    supplier = EXCLUDED.supplier,
    product = EXCLUDED.product,
    batch = EXCLUDED.batch,
    expiration_date = EXCLUDED.expiration_date,
    production_date = EXCLUDED.production_date,
    gross_weight = EXCLUDED.gross_weight,
    note_weight = EXCLUDED.note_weight,
    net_weight = EXCLUDED.net_weight,
    tara_total = EXCLUDED.tara_total,
    box_qty = EXCLUDED.box_qty,
    box_unit_tara = EXCLUDED.box_unit_tara,
    status = EXCLUDED.status,
    evidence = EXCLUDED.evidence,
    ai_analysis = EXCLUDED.ai_analysis,
    recommended_temperature = EXCLUDED.recommended_temperature,
    store = EXCLUDED.store`

const upsertStateSQL = `INSERT INTO weighcheck_state (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// Upload replaces the station's rows with the envelope's content in one transaction.
func (t *RelationalTransport) Upload(ctx context.Context, payload []byte) error {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.App != AppMarker || env.Data == nil {
		return ErrInvalidBackup
	}

	state := map[string]any{
		stateMeta: envelopeMeta{Version: env.Version, Timestamp: env.Timestamp},
	}
	if env.Data.Profile != nil {
		state[stateProfile] = env.Data.Profile
	}
	if env.Data.Knowledge != nil {
		state[stateKnowledge] = env.Data.Knowledge
	}
	if env.Data.Theme != nil {
		state[stateTheme] = env.Data.Theme
	}

	err := db.WithTx(ctx, t.db, func(tx pgx.Tx) error {
		if env.Data.Records != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM weighcheck_records WHERE namespace = $1`, t.namespace); err != nil {
				return fmt.Errorf("clear records: %w", err)
			}
			for _, rec := range env.Data.Records {
				row := recordToRow(rec)
				if _, err := tx.Exec(ctx, upsertRecordSQL,
					t.namespace, row.ID, row.RecordedAt, row.Supplier, row.Product, row.Batch,
					row.ExpirationDate, row.ProductionDate, row.GrossWeight, row.NoteWeight,
					row.NetWeight, row.TaraTotal, row.BoxQty, row.BoxUnitTara, row.Status,
					row.Evidence, row.AIAnalysis, row.RecommendedTemperature, row.Store,
				); err != nil {
					return fmt.Errorf("upsert record %s: %w", row.ID, err)
				}
			}
		}
		for _, key := range []string{stateMeta, stateProfile, stateKnowledge, stateTheme} {
			value, ok := state[key]
			if !ok {
				continue
			}
			raw, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			if _, err := tx.Exec(ctx, upsertStateSQL, t.namespace, key, raw); err != nil {
				return fmt.Errorf("upsert %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: relational upload: %v", ErrTransport, err)
	}
	return nil
}

// Download rebuilds an envelope from the station's rows.
func (t *RelationalTransport) Download(ctx context.Context) ([]byte, error) {
	state, err := t.loadState(ctx)
	if isUndefinedTable(err) {
		return nil, ErrNoRemoteBackup
	}
	if err != nil {
		return nil, fmt.Errorf("%w: relational download: %v", ErrTransport, err)
	}
	metaRaw, ok := state[stateMeta]
	if !ok {
		return nil, ErrNoRemoteBackup
	}
	var meta envelopeMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode meta: %v", ErrTransport, err)
	}

	recs, err := t.loadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: relational download: %v", ErrTransport, err)
	}

	out := struct {
		Version   string    `json:"version"`
		Timestamp time.Time `json:"timestamp"`
		App       string    `json:"app"`
		Data      struct {
			Records   []weighing.Record `json:"records"`
			Profile   json.RawMessage   `json:"profile,omitempty"`
			Knowledge json.RawMessage   `json:"knowledge,omitempty"`
			Theme     json.RawMessage   `json:"theme,omitempty"`
		} `json:"data"`
	}{Version: meta.Version, Timestamp: meta.Timestamp, App: AppMarker}
	out.Data.Records = recs
	out.Data.Profile = state[stateProfile]
	out.Data.Knowledge = state[stateKnowledge]
	out.Data.Theme = state[stateTheme]

	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("backup: encode envelope: %w", err)
	}
	return payload, nil
}

func (t *RelationalTransport) loadState(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := t.db.Query(ctx, `SELECT key, value FROM weighcheck_state WHERE namespace = $1`, t.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		state[key] = json.RawMessage(value)
	}
	return state, rows.Err()
}

func (t *RelationalTransport) loadRecords(ctx context.Context) ([]weighing.Record, error) {
	query := "SELECT " + strings.Join(recordColumns, ", ") +
		" FROM weighcheck_records WHERE namespace = $1 ORDER BY recorded_at DESC, id DESC"
	rows, err := t.db.Query(ctx, query, t.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []weighing.Record{}
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(
			&row.ID, &row.RecordedAt, &row.Supplier, &row.Product, &row.Batch,
			&row.ExpirationDate, &row.ProductionDate, &row.GrossWeight, &row.NoteWeight,
			&row.NetWeight, &row.TaraTotal, &row.BoxQty, &row.BoxUnitTara, &row.Status,
			&row.Evidence, &row.AIAnalysis, &row.RecommendedTemperature, &row.Store,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rowToRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// isUndefinedTable reports whether err is Postgres "relation does not exist".
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
