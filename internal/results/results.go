// Package results keeps the per-app installation outcomes and mirrors
// them to a JSON file consumed by downstream workflow tooling.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Installation statuses. The exact strings are part of the results file
// contract and must not change.
const (
	StatusSuccess         = "Success"
	StatusSuccessNoButton = "Success (no install button)"
	StatusFailed          = "Failed"
)

// DefaultFile is the results file written next to the working directory
// unless overridden.
const DefaultFile = "installation_results.json"

// Result is one installation attempt outcome. Records are appended and
// never mutated once written.
type Result struct {
	PackageName        string `json:"package_name"`
	AppName            string `json:"app_name"`
	InstallationStatus string `json:"installation_status"`
	InstalledVersion   string `json:"installed_version"`
	Timestamp          string `json:"timestamp"`
}

// Recorder accumulates results in order and rewrites the whole list to
// its file after every append, so the file always reflects memory.
type Recorder struct {
	path    string
	results []Result
	now     func() time.Time
}

// NewRecorder returns a recorder writing to path (DefaultFile if empty).
func NewRecorder(path string) *Recorder {
	if path == "" {
		path = DefaultFile
	}
	return &Recorder{path: path, now: time.Now}
}

// Record appends one result, stamping it with the current time, and
// saves the full list to disk.
func (r *Recorder) Record(pkg, name, status, version string) (Result, error) {
	res := Result{
		PackageName:        pkg,
		AppName:            name,
		InstallationStatus: status,
		InstalledVersion:   version,
		Timestamp:          r.now().Format(time.RFC3339),
	}
	r.results = append(r.results, res)
	if err := r.save(); err != nil {
		return res, err
	}
	return res, nil
}

// Results returns a copy of the accumulated records in append order.
func (r *Recorder) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Path returns the file the recorder mirrors to.
func (r *Recorder) Path() string {
	return r.path
}

// save re-serializes the full list, replacing the previous file.
func (r *Recorder) save() error {
	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// Load reads a results file. A missing file yields an empty list.
func Load(path string) ([]Result, error) {
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	return results, nil
}
