// Package postgres persists generation run history: one row per
// trigger × injection-point combination, keyed by a run id. The store is
// optional; callers degrade to file output when no database is reachable.
package postgres

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// RunRecord is one generation result.
type RunRecord struct {
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"ts"`
	BaseScenario   string    `json:"base_scenario"`
	SignalName     string    `json:"signal_name"`
	InjectionPoint string    `json:"injection_point"`
	OutputFile     string    `json:"output_file,omitempty"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
}

// Statuses recorded for a combination.
const (
	StatusGenerated = "generated"
	StatusFailed    = "failed"
)

// Client manages the Postgres connection for run history.
type Client struct {
	db *sql.DB
}

// New opens a connection using environment variables (PGHOST, PGPORT,
// PGUSER, PGPASSWORD, PGDATABASE). Returns an error if the database is
// unreachable; callers treat that as "no history store".
func New() (*Client, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "faultgen")
	dbname := getEnv("PGDATABASE", "faultgen")
	password := os.Getenv("PGPASSWORD")

	var connStr string
	if password != "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			host, port, user, dbname)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	client := &Client{db: db}
	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create generation_results table: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS generation_results (
			result_id       BIGSERIAL PRIMARY KEY,
			run_id          UUID NOT NULL,
			ts              TIMESTAMPTZ NOT NULL,
			base_scenario   TEXT NOT NULL,
			signal_name     TEXT NOT NULL,
			injection_point TEXT NOT NULL,
			output_file     TEXT,
			status          TEXT NOT NULL,
			error           TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_generation_results_run_id ON generation_results(run_id);
		CREATE INDEX IF NOT EXISTS idx_generation_results_ts ON generation_results(ts DESC);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts one run record.
func (c *Client) Append(rec RunRecord) error {
	var outputFile, errText *string
	if rec.OutputFile != "" {
		outputFile = &rec.OutputFile
	}
	if rec.Error != "" {
		errText = &rec.Error
	}

	query := `
		INSERT INTO generation_results (run_id, ts, base_scenario, signal_name, injection_point, output_file, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := c.db.Exec(query, rec.RunID, rec.Timestamp, rec.BaseScenario,
		rec.SignalName, rec.InjectionPoint, outputFile, rec.Status, errText)
	return err
}

// QueryRun returns the records for one run in insertion order.
func (c *Client) QueryRun(runID string) ([]RunRecord, error) {
	query := `
		SELECT run_id, ts, base_scenario, signal_name, injection_point, output_file, status, error
		FROM generation_results
		WHERE run_id = $1
		ORDER BY result_id
	`
	rows, err := c.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var outputFile, errText sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Timestamp, &rec.BaseScenario,
			&rec.SignalName, &rec.InjectionPoint, &outputFile, &rec.Status, &errText); err != nil {
			return nil, err
		}
		rec.OutputFile = outputFile.String
		rec.Error = errText.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
