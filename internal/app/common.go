package app

import (
	"context"
	"fmt"

	"github.com/nordapps/storecheck/internal/adb"
	"github.com/nordapps/storecheck/internal/output"
	"github.com/nordapps/storecheck/internal/report"
	"github.com/nordapps/storecheck/internal/results"
	"github.com/nordapps/storecheck/internal/runner"
	"github.com/nordapps/storecheck/internal/store"
	"github.com/nordapps/storecheck/internal/target"
	"github.com/nordapps/storecheck/internal/uiauto"
)

// loadTargets resolves the configured target list and narrows it to the
// package ids given on the command line (all targets when args is empty).
func loadTargets(args []string) ([]target.Target, error) {
	all, err := target.Load(targetsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	if len(args) == 0 {
		return all, nil
	}

	var selected []target.Target
	for _, pkg := range args {
		t, ok := target.Find(all, pkg)
		if !ok {
			return nil, fmt.Errorf("unknown target package %q (see 'storecheck targets')", pkg)
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// session bundles everything a phase command needs, plus its cleanup.
type session struct {
	runner  *runner.Runner
	targets []target.Target
	bridge  *adb.Bridge
	driver  *uiauto.Client
	history *store.Store
	runID   int64
}

// close stamps the run finished and releases the database.
func (s *session) close() {
	if s.history == nil {
		return
	}
	if err := s.history.FinishRun(s.runID); err != nil {
		fmt.Printf("warning: could not finish run record: %v\n", err)
	}
	s.history.Close()
}

// newSession builds the bridge, driver client, recorder, attachment
// store and run-history entry shared by all phase commands.
func newSession(args []string) (*session, error) {
	targets, err := loadTargets(args)
	if err != nil {
		return nil, err
	}

	var opts []adb.Option
	if adbSerial != "" {
		opts = append(opts, adb.WithSerial(adbSerial))
	}
	bridge := adb.New(opts...)
	driver := uiauto.NewClient(serverURL)

	attachments, err := getAttachmentsDir()
	if err != nil {
		return nil, err
	}
	reportStore, err := report.NewStore(attachments)
	if err != nil {
		return nil, err
	}

	// History is best-effort: a broken database degrades to file-only
	// results rather than blocking the checks.
	var history *store.Store
	var runID int64
	if path, err := getDBPath(); err == nil {
		if db, err := store.New(path); err == nil {
			if id, err := db.BeginRun(adbSerial, driverURLForDisplay()); err == nil {
				history, runID = db, id
			} else {
				db.Close()
				fmt.Printf("warning: run history disabled: %v\n", err)
			}
		} else {
			fmt.Printf("warning: run history disabled: %v\n", err)
		}
	}

	r, err := runner.New(runner.Config{
		Bridge:     bridge,
		Driver:     driver,
		Recorder:   results.NewRecorder(resultsPath),
		Report:     reportStore,
		History:    history,
		RunID:      runID,
		DeviceName: deviceName,
	})
	if err != nil {
		if history != nil {
			history.Close()
		}
		return nil, err
	}

	return &session{
		runner:  r,
		targets: targets,
		bridge:  bridge,
		driver:  driver,
		history: history,
		runID:   runID,
	}, nil
}

func driverURLForDisplay() string {
	if serverURL != "" {
		return serverURL
	}
	return uiauto.DefaultServerURL
}

// checkDriver probes the automation server before any UI-driving phase
// so a dead server fails fast with a clear message.
func (s *session) checkDriver(ctx context.Context) error {
	spinner := output.NewSpinner("Checking automation server")
	spinner.Start()
	err := s.driver.Status(ctx)
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("automation server not reachable at %s: %w", driverURLForDisplay(), err)
	}
	spinner.StopWithMessage("✓ Automation server ready")
	return nil
}

// checkDevice verifies a usable device is attached. With --serial set
// that exact device must be online; otherwise any online device will do.
func (s *session) checkDevice(ctx context.Context) error {
	devices, err := s.bridge.Devices(ctx)
	if err != nil {
		return err
	}

	for _, d := range devices {
		if d.State != "device" {
			continue
		}
		if adbSerial == "" || d.Serial == adbSerial {
			fmt.Printf("✓ Device %s attached\n", d.Serial)
			return nil
		}
	}
	if adbSerial != "" {
		return fmt.Errorf("device %s not attached or not online", adbSerial)
	}
	return fmt.Errorf("no online device attached")
}
