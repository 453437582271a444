package store

import (
	"testing"
	"time"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: DriverSqlite})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(passed bool) RunRecord {
	now := time.Now()
	return RunRecord{
		Scenario:   "default-queue-type-repro",
		Passed:     passed,
		Aborted:    !passed,
		StartedAt:  now.Add(-2 * time.Second),
		FinishedAt: now,
		Steps: []StepRecord{
			{Seq: 1, Name: "cleanup leftover vhost", Kind: "admin", Status: "success", Pass: true},
			{Seq: 2, Name: "redeclare queue with identical parameters", Kind: "protocol",
				Status: "failure", Code: 406,
				Reason: "inequivalent arg 'x-queue-type'",
				Pass:   passed, Detail: "", Tolerated: false},
		},
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := openMemory(t)

	id, err := s.RecordRun(sampleRun(true))
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive run id, got %d", id)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Scenario != "default-queue-type-repro" || !r.Passed || r.Aborted {
		t.Fatalf("unexpected run record: %+v", r)
	}

	steps, err := s.LoadSteps(id)
	if err != nil {
		t.Fatalf("LoadSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Seq != 1 || steps[1].Seq != 2 {
		t.Fatalf("steps out of order: %+v", steps)
	}
	if steps[1].Code != 406 || steps[1].Status != "failure" {
		t.Fatalf("step details lost: %+v", steps[1])
	}
}

func TestListRuns_NewestFirstAndLimited(t *testing.T) {
	s := openMemory(t)

	var lastID int64
	for i := 0; i < 5; i++ {
		id, err := s.RecordRun(sampleRun(i%2 == 0))
		if err != nil {
			t.Fatalf("RecordRun %d: %v", i, err)
		}
		lastID = id
	}

	runs, err := s.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != lastID {
		t.Fatalf("expected newest run first, got id %d (want %d)", runs[0].ID, lastID)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	s := openMemory(t)
	if err := s.ensure(); err != nil {
		t.Fatalf("ensure must be idempotent: %v", err)
	}
}
