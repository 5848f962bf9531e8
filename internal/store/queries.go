package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nordapps/storecheck/internal/results"
)

// Run is one storecheck invocation recorded in history.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Device     string
	DriverURL  string
}

// BeginRun inserts a new run row and returns its id.
func (s *Store) BeginRun(device, driverURL string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, device, driver_url) VALUES (?, ?, ?)`,
		time.Now().Format(time.RFC3339), device, driverURL,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's finish time.
func (s *Store) FinishRun(runID int64) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		time.Now().Format(time.RFC3339), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	return nil
}

// InsertResult appends one installation result to a run.
func (s *Store) InsertResult(runID int64, r results.Result) error {
	_, err := s.db.Exec(
		`INSERT INTO run_results (run_id, package, app_name, status, version, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, r.PackageName, r.AppName, r.InstallationStatus, r.InstalledVersion, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert result for %s: %w", r.PackageName, err)
	}
	return nil
}

// LatestRun returns the most recently started run, or sql.ErrNoRows
// wrapped when history is empty.
func (s *Store) LatestRun() (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, finished_at, device, driver_url
		 FROM runs ORDER BY id DESC LIMIT 1`,
	)

	var run Run
	var started string
	var finished, device, driverURL sql.NullString
	if err := row.Scan(&run.ID, &started, &finished, &device, &driverURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no runs recorded yet")
		}
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	var err error
	run.StartedAt, err = time.Parse(time.RFC3339, started)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run start time: %w", err)
	}
	if finished.Valid && finished.String != "" {
		run.FinishedAt, _ = time.Parse(time.RFC3339, finished.String)
	}
	run.Device = device.String
	run.DriverURL = driverURL.String
	return &run, nil
}

// RunResults returns a run's results in insertion order.
func (s *Store) RunResults(runID int64) ([]results.Result, error) {
	rows, err := s.db.Query(
		`SELECT package, app_name, status, version, timestamp
		 FROM run_results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []results.Result
	for rows.Next() {
		var r results.Result
		var version sql.NullString
		if err := rows.Scan(&r.PackageName, &r.AppName, &r.InstallationStatus, &version, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		r.InstalledVersion = version.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate result rows: %w", err)
	}
	return out, nil
}

// PackageHistory returns all recorded results for a package, newest
// first, across runs.
func (s *Store) PackageHistory(pkg string) ([]results.Result, error) {
	rows, err := s.db.Query(
		`SELECT package, app_name, status, version, timestamp
		 FROM run_results WHERE package = ? ORDER BY id DESC`,
		pkg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", pkg, err)
	}
	defer rows.Close()

	var out []results.Result
	for rows.Next() {
		var r results.Result
		var version sql.NullString
		if err := rows.Scan(&r.PackageName, &r.AppName, &r.InstallationStatus, &version, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.InstalledVersion = version.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return out, nil
}
