// Package journal persists safety events to a local SQLite database.
//
// The journal is an append-only record of obstacle detections and
// emergency-stop triggers, kept for post-incident analysis. Nothing on
// the safety monitor's decision path reads from it: a journal failure
// is logged and otherwise ignored so a full disk can never delay an
// emergency stop.
//
// The database runs in WAL mode with a single writer connection, which
// is all SQLite supports anyway. Schema creation is idempotent and
// applied by Migrate on every start.
//
// Usage:
//
//	j, err := journal.Open(journal.Config{
//	    Path:        "./data/orchestrator.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Close()
//
//	if err := j.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package journal
