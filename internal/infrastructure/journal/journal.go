package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// Journal is a SQLite-backed store of safety events: obstacle detections
// and emergency-stop triggers. It exists for post-incident analysis; the
// safety monitor never reads it on its decision path.
type Journal struct {
	db   *sql.DB
	path string
}

// Config contains journal configuration options.
// These map to the journal section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Detection is one journalled obstacle detection.
type Detection struct {
	ID        int64
	Timestamp time.Time
	Zone      string
	Distance  float64
	Angle     float64
	Severity  string
}

// EstopEvent is one journalled emergency-stop trigger.
type EstopEvent struct {
	ID             int64
	Timestamp      time.Time
	CommandID      string
	Zone           string
	Distance       float64
	Angle          float64
	TotalObstacles int
}

// Open creates a new journal with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Sets appropriate file permissions (0600)
//  5. Verifies the connection with a ping
//
// Parameters:
//   - cfg: Journal configuration
//
// Returns:
//   - *Journal: Connected journal (call Migrate before first use)
//   - error: If connection or configuration fails
func Open(cfg Config) (*Journal, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// SQLite only supports one writer; keep a single connection ready.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{
		db:   db,
		path: cfg.Path,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying journal connection: %w", err)
	}

	// Ignore error - file might not exist yet on first run.
	_ = os.Chmod(cfg.Path, filePermissions)

	return j, nil
}

// Migrate creates the journal schema if it does not already exist.
// Safe to call on every start.
func (j *Journal) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying journal schema: %w", err)
		}
	}
	return nil
}

// schema is the journal table set. Two append-only event tables; both
// indexed on timestamp for the recency queries and pruning.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS obstacle_detections (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		ts        TIMESTAMP NOT NULL,
		zone      TEXT NOT NULL,
		distance  REAL NOT NULL,
		angle     REAL NOT NULL,
		severity  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_obstacle_detections_ts ON obstacle_detections(ts)`,
	`CREATE TABLE IF NOT EXISTS estop_events (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		ts              TIMESTAMP NOT NULL,
		command_id      TEXT NOT NULL,
		zone            TEXT NOT NULL,
		distance        REAL NOT NULL,
		angle           REAL NOT NULL,
		total_obstacles INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_estop_events_ts ON estop_events(ts)`,
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the journal file.
func (j *Journal) Path() string {
	return j.path
}

// HealthCheck verifies the journal is accessible and functioning.
func (j *Journal) HealthCheck(ctx context.Context) error {
	var result int
	if err := j.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("journal health check failed: %w", err)
	}
	return nil
}

// RecordDetection appends one obstacle detection.
//
// The scalar signature deliberately matches the safety monitor's Recorder
// interface so *Journal satisfies it without an adapter.
func (j *Journal) RecordDetection(ctx context.Context, ts time.Time, zone string, distance, angle float64, severity string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO obstacle_detections (ts, zone, distance, angle, severity) VALUES (?, ?, ?, ?, ?)`,
		ts.UTC(), zone, distance, angle, severity,
	)
	if err != nil {
		return fmt.Errorf("recording detection: %w", err)
	}
	return nil
}

// RecordEstop appends one emergency-stop trigger event.
func (j *Journal) RecordEstop(ctx context.Context, ts time.Time, commandID, zone string, distance, angle float64, totalObstacles int) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO estop_events (ts, command_id, zone, distance, angle, total_obstacles) VALUES (?, ?, ?, ?, ?, ?)`,
		ts.UTC(), commandID, zone, distance, angle, totalObstacles,
	)
	if err != nil {
		return fmt.Errorf("recording estop event: %w", err)
	}
	return nil
}

// RecentDetections returns detections at or after the given time,
// newest first.
func (j *Journal) RecentDetections(ctx context.Context, since time.Time) ([]Detection, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, ts, zone, distance, angle, severity
		 FROM obstacle_detections WHERE ts >= ? ORDER BY ts DESC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying detections: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var detections []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.Timestamp, &d.Zone, &d.Distance, &d.Angle, &d.Severity); err != nil {
			return nil, fmt.Errorf("scanning detection: %w", err)
		}
		detections = append(detections, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating detections: %w", err)
	}
	return detections, nil
}

// RecentEstops returns emergency-stop events at or after the given time,
// newest first.
func (j *Journal) RecentEstops(ctx context.Context, since time.Time) ([]EstopEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, ts, command_id, zone, distance, angle, total_obstacles
		 FROM estop_events WHERE ts >= ? ORDER BY ts DESC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying estop events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var events []EstopEvent
	for rows.Next() {
		var e EstopEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.CommandID, &e.Zone, &e.Distance, &e.Angle, &e.TotalObstacles); err != nil {
			return nil, fmt.Errorf("scanning estop event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating estop events: %w", err)
	}
	return events, nil
}

// PruneLoop prunes old detections every interval until the context is
// cancelled. Each pass is reported through the callback so the caller
// can log outcomes; the loop itself never aborts on a prune error.
// Intended to run as a goroutine for the life of the daemon.
func (j *Journal) PruneLoop(ctx context.Context, interval, keep time.Duration, report func(pruned int64, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := j.Prune(ctx, keep)
			if report != nil {
				report(pruned, err)
			}
		}
	}
}

// Prune deletes detections older than the retention window.
// Estop events are kept indefinitely; they are rare and operationally
// significant.
func (j *Journal) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	cutoff := time.Now().Add(-keep).UTC()
	result, err := j.db.ExecContext(ctx,
		`DELETE FROM obstacle_detections WHERE ts < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return n, nil
}
