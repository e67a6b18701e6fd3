package audit

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresSink persists audit records to the firmos_audit_log table.
// Inserts are best-effort: a failed insert is logged and dropped rather
// than failing the operation that produced the record.
type PostgresSink struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresSink opens a Postgres connection for audit persistence.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresSink{
		db:     db,
		logger: log.New(log.Writer(), "[AUDIT-PG] ", log.LstdFlags),
	}, nil
}

// Record inserts one audit row.
func (s *PostgresSink) Record(rec Record) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	details, err := json.Marshal(rec.Details)
	if err != nil {
		s.logger.Printf("⚠️  Dropping audit record %s/%s: bad details: %v",
			rec.ResourceType, rec.ResourceID, err)
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO firmos_audit_log
			(action, actor, resource_type, resource_id, details, previous_state, new_state, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.Action, rec.Actor, rec.ResourceType, rec.ResourceID,
		details, rec.PrevState, rec.NewState, rec.RecordedAt,
	)
	if err != nil {
		s.logger.Printf("⚠️  Failed to persist audit record %s/%s: %v",
			rec.ResourceType, rec.ResourceID, err)
	}
}

// Close releases the database connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
