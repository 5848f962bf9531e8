package store

import (
	"testing"

	"github.com/nordapps/storecheck/internal/results"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun("emulator-5554", "http://127.0.0.1:4723")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	r := results.Result{
		PackageName:        "fi.sbweather.app",
		AppName:            "Sebitti Sää",
		InstallationStatus: results.StatusSuccess,
		InstalledVersion:   "3.4.1",
		Timestamp:          "2025-06-01T12:30:00Z",
	}
	if err := s.InsertResult(runID, r); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	if err := s.FinishRun(runID); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != runID {
		t.Errorf("latest run id = %d, want %d", latest.ID, runID)
	}
	if latest.Device != "emulator-5554" {
		t.Errorf("device = %q", latest.Device)
	}
	if latest.FinishedAt.IsZero() {
		t.Error("finished_at not recorded")
	}

	got, err := s.RunResults(runID)
	if err != nil {
		t.Fatalf("RunResults: %v", err)
	}
	if len(got) != 1 || got[0] != r {
		t.Errorf("RunResults = %+v, want [%+v]", got, r)
	}
}

func TestLatestRunEmptyHistory(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LatestRun(); err == nil {
		t.Error("expected error when no runs recorded")
	}
}

func TestLatestRunPicksNewest(t *testing.T) {
	s := newTestStore(t)

	first, err := s.BeginRun("dev", "url")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	second, err := s.BeginRun("dev", "url")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if second <= first {
		t.Fatalf("run ids not increasing: %d then %d", first, second)
	}

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != second {
		t.Errorf("latest = %d, want %d", latest.ID, second)
	}
}

func TestPackageHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun("dev", "url")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	older := results.Result{PackageName: "com.feelment", AppName: "Feelment", InstallationStatus: results.StatusFailed, InstalledVersion: "N/A", Timestamp: "2025-06-01T10:00:00Z"}
	newer := results.Result{PackageName: "com.feelment", AppName: "Feelment", InstallationStatus: results.StatusSuccess, InstalledVersion: "1.2", Timestamp: "2025-06-01T11:00:00Z"}
	if err := s.InsertResult(runID, older); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	if err := s.InsertResult(runID, newer); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	hist, err := s.PackageHistory("com.feelment")
	if err != nil {
		t.Fatalf("PackageHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].InstallationStatus != results.StatusSuccess {
		t.Errorf("newest first expected, got %q first", hist[0].InstallationStatus)
	}
}
