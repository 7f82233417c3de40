package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	if err := j.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return j
}

func TestOpenCreatesDirectoryAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")

	j, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if j.Path() != path {
		t.Errorf("Path() = %q, want %q", j.Path(), path)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	j := openTestJournal(t)

	// Second migration must be a no-op, not an error.
	if err := j.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	j := openTestJournal(t)

	if err := j.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestRecordAndQueryDetections(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	now := time.Now()
	older := now.Add(-2 * time.Hour)

	if err := j.RecordDetection(ctx, older, "warning_left", 0.42, 90, "warning"); err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}
	if err := j.RecordDetection(ctx, now, "critical_front", 0.25, 10, "critical"); err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}

	got, err := j.RecentDetections(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("RecentDetections() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentDetections() returned %d rows, want 1", len(got))
	}
	d := got[0]
	if d.Zone != "critical_front" || d.Severity != "critical" {
		t.Errorf("detection = %+v, want critical_front/critical", d)
	}
	if d.Distance != 0.25 || d.Angle != 10 {
		t.Errorf("detection distance/angle = %v/%v, want 0.25/10", d.Distance, d.Angle)
	}
}

func TestRecordAndQueryEstops(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	now := time.Now()
	if err := j.RecordEstop(ctx, now, "cmd-123", "critical_front", 0.2, 5, 3); err != nil {
		t.Fatalf("RecordEstop() error = %v", err)
	}

	got, err := j.RecentEstops(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("RecentEstops() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentEstops() returned %d rows, want 1", len(got))
	}
	e := got[0]
	if e.CommandID != "cmd-123" {
		t.Errorf("CommandID = %q, want cmd-123", e.CommandID)
	}
	if e.TotalObstacles != 3 {
		t.Errorf("TotalObstacles = %d, want 3", e.TotalObstacles)
	}
}

func TestPruneLoopRemovesOldDetections(t *testing.T) {
	j := openTestJournal(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	if err := j.RecordDetection(ctx, now.Add(-48*time.Hour), "warning_left", 0.4, 100, "warning"); err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}

	reported := make(chan int64, 1)
	go j.PruneLoop(ctx, 10*time.Millisecond, 24*time.Hour, func(pruned int64, err error) {
		if err != nil {
			t.Errorf("prune error = %v", err)
			return
		}
		select {
		case reported <- pruned:
		default:
		}
	})

	select {
	case pruned := <-reported:
		if pruned != 1 {
			t.Errorf("first prune removed %d rows, want 1", pruned)
		}
	case <-time.After(time.Second):
		t.Fatal("prune loop did not run within a second")
	}

	dets, err := j.RecentDetections(ctx, now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("RecentDetections() error = %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("detections after prune loop = %d, want 0", len(dets))
	}
}

func TestPruneKeepsRecentAndEstops(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	now := time.Now()
	if err := j.RecordDetection(ctx, now.Add(-48*time.Hour), "warning_left", 0.4, 100, "warning"); err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}
	if err := j.RecordDetection(ctx, now, "critical_front", 0.2, 0, "critical"); err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}
	if err := j.RecordEstop(ctx, now.Add(-48*time.Hour), "cmd-old", "critical_front", 0.2, 0, 1); err != nil {
		t.Fatalf("RecordEstop() error = %v", err)
	}

	pruned, err := j.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune() removed %d rows, want 1", pruned)
	}

	dets, err := j.RecentDetections(ctx, now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("RecentDetections() error = %v", err)
	}
	if len(dets) != 1 {
		t.Errorf("detections after prune = %d, want 1", len(dets))
	}

	// Estop events are retained regardless of age.
	estops, err := j.RecentEstops(ctx, now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("RecentEstops() error = %v", err)
	}
	if len(estops) != 1 {
		t.Errorf("estop events after prune = %d, want 1", len(estops))
	}
}
