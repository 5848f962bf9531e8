// Package runner orchestrates the three check phases per target app:
// uninstall, install from the Play Store, and post-install UI
// verification. Targets are processed strictly sequentially.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nordapps/storecheck/internal/report"
	"github.com/nordapps/storecheck/internal/results"
	"github.com/nordapps/storecheck/internal/store"
	"github.com/nordapps/storecheck/internal/target"
	"github.com/nordapps/storecheck/internal/uiauto"
)

// installButtonXPath matches the store's install trigger regardless of
// label casing.
const installButtonXPath = "//*[contains(@text, 'Install') or contains(@text, 'INSTALL')]"

// DeviceBridge is the adb surface the runner needs. *adb.Bridge
// implements it; tests substitute a fake.
type DeviceBridge interface {
	Installed(ctx context.Context, pkg string) (bool, error)
	Uninstall(ctx context.Context, pkg string) error
	Version(ctx context.Context, pkg string) string
	WaitInstalled(ctx context.Context, pkg string, attempts int, interval time.Duration) bool
	LaunchApp(ctx context.Context, pkg string) error
	OpenStorePage(ctx context.Context, pkg string) error
	Screencap(ctx context.Context) ([]byte, error)
}

// Timing holds every fixed sleep and polling budget of the flows.
type Timing struct {
	StoreSettle       time.Duration // after the store session opens
	PageSettle        time.Duration // after the market intent fires
	InstallButtonWait time.Duration // bounded wait for the install trigger
	InstallAttempts   int           // presence polls after clicking install
	InstallInterval   time.Duration // delay between presence polls
	LaunchSettle      time.Duration // after the monkey launch
	UIWait            time.Duration // bounded wait for the expected element
}

// DefaultTiming returns the production budgets: install polling is
// bounded at 30 × 3s, the UI check at 10s.
func DefaultTiming() Timing {
	return Timing{
		StoreSettle:       3 * time.Second,
		PageSettle:        5 * time.Second,
		InstallButtonWait: 15 * time.Second,
		InstallAttempts:   30,
		InstallInterval:   3 * time.Second,
		LaunchSettle:      5 * time.Second,
		UIWait:            10 * time.Second,
	}
}

// Runner drives the check phases against one device.
type Runner struct {
	bridge     DeviceBridge
	driver     *uiauto.Client
	recorder   *results.Recorder
	report     *report.Store
	history    *store.Store // optional run history, may be nil
	runID      int64
	deviceName string
	timing     Timing
	out        io.Writer
}

// Config wires a Runner's collaborators.
type Config struct {
	Bridge     DeviceBridge
	Driver     *uiauto.Client
	Recorder   *results.Recorder
	Report     *report.Store
	History    *store.Store
	RunID      int64
	DeviceName string
	Timing     Timing
	Out        io.Writer
}

// New validates the config and returns a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Bridge == nil {
		return nil, errors.New("runner: device bridge is required")
	}
	if cfg.Driver == nil {
		return nil, errors.New("runner: driver client is required")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("runner: recorder is required")
	}
	if cfg.Report == nil {
		return nil, errors.New("runner: report store is required")
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = "Android_test_device"
	}
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Runner{
		bridge:     cfg.Bridge,
		driver:     cfg.Driver,
		recorder:   cfg.Recorder,
		report:     cfg.Report,
		history:    cfg.History,
		runID:      cfg.RunID,
		deviceName: cfg.DeviceName,
		timing:     cfg.Timing,
		out:        cfg.Out,
	}, nil
}

// Results returns the install records accumulated so far.
func (r *Runner) Results() []results.Result {
	return r.recorder.Results()
}

func (r *Runner) logf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// sleep pauses for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Uninstall removes the target if present and verifies it is gone.
// Running it against an absent package is not an error.
func (r *Runner) Uninstall(ctx context.Context, t target.Target) error {
	installed, err := r.bridge.Installed(ctx, t.Package)
	if err != nil {
		return fmt.Errorf("failed to check presence of %s: %w", t.Package, err)
	}
	if !installed {
		r.logf("%s (%s): not installed, nothing to uninstall", t.Name, t.Package)
		return nil
	}

	if err := r.bridge.Uninstall(ctx, t.Package); err != nil {
		r.logf("%s: uninstall reported: %v", t.Name, err)
	}

	still, err := r.bridge.Installed(ctx, t.Package)
	if err != nil {
		return fmt.Errorf("failed to verify uninstall of %s: %w", t.Package, err)
	}
	if still {
		return fmt.Errorf("failed to uninstall %s: package still present", t.Package)
	}

	r.logf("%s (%s): uninstalled", t.Name, t.Package)
	return nil
}

// record appends the install outcome to the results file and, when run
// history is enabled, to the database.
func (r *Runner) record(t target.Target, status, version string) error {
	res, err := r.recorder.Record(t.Package, t.Name, status, version)
	if err != nil {
		return err
	}
	if r.history != nil {
		if err := r.history.InsertResult(r.runID, res); err != nil {
			r.logf("warning: could not record history for %s: %v", t.Package, err)
		}
	}
	return nil
}

// attachScreenshot captures the session screen and stores it. The adb
// screencap is the fallback when the driver cannot deliver one. Failures
// are logged, not fatal: a missing screenshot never fails a check.
func (r *Runner) attachScreenshot(ctx context.Context, sess *uiauto.Session, name string, outcome report.Outcome) {
	png, err := sess.Screenshot(ctx)
	if err != nil {
		png, err = r.bridge.Screencap(ctx)
	}
	if err != nil {
		r.logf("warning: could not capture screenshot %s: %v", name, err)
		return
	}
	if _, err := r.report.AttachPNG(name, outcome, png); err != nil {
		r.logf("warning: could not store screenshot %s: %v", name, err)
	}
}

// Install drives the Play Store to install the target and polls for the
// package to appear. Every terminal outcome appends exactly one result
// record; failure paths also capture a screenshot.
func (r *Runner) Install(ctx context.Context, t target.Target) error {
	sess, err := r.driver.NewSession(ctx, uiauto.PlayStoreCapabilities(r.deviceName))
	if err != nil {
		return fmt.Errorf("failed to open Play Store session: %w", err)
	}
	defer sess.Quit(context.WithoutCancel(ctx))

	sleep(ctx, r.timing.StoreSettle)

	// Navigate straight to the app page with a market intent. The adb
	// bridge is the fallback when the driver's shell extension fails.
	intentArgs := []string{"start", "-a", "android.intent.action.VIEW", "-d", "market://details?id=" + t.Package}
	if err := sess.Shell(ctx, "am", intentArgs, 5*time.Second); err != nil {
		r.logf("%s: driver shell intent failed (%v), falling back to adb", t.Name, err)
		if err := r.bridge.OpenStorePage(ctx, t.Package); err != nil {
			return fmt.Errorf("failed to open store page for %s: %w", t.Package, err)
		}
	}
	sleep(ctx, r.timing.PageSettle)

	button := target.Locator{Kind: target.XPath, Value: installButtonXPath}
	buttonID, found, err := sess.WaitFor(ctx, button, r.timing.InstallButtonWait)
	if err != nil {
		return fmt.Errorf("failed while waiting for install button: %w", err)
	}

	if !found {
		// No install button within budget: the app may already be
		// installed, so re-check presence before declaring failure.
		installed, presErr := r.bridge.Installed(ctx, t.Package)
		if presErr == nil && installed {
			version := r.bridge.Version(ctx, t.Package)
			if err := r.record(t, results.StatusSuccessNoButton, version); err != nil {
				return err
			}
			r.logf("%s: already installed (version %s)", t.Name, version)
			return nil
		}

		if err := r.record(t, results.StatusFailed, "N/A"); err != nil {
			return err
		}
		r.attachScreenshot(ctx, sess, t.Package+"_install_failed", report.OutcomeFailed)
		return fmt.Errorf("install button not found and %s not installed", t.Package)
	}

	if err := sess.Click(ctx, buttonID); err != nil {
		return fmt.Errorf("failed to click install button for %s: %w", t.Package, err)
	}
	r.attachScreenshot(ctx, sess, t.Package+"_install_clicked", report.OutcomeSuccess)

	if !r.bridge.WaitInstalled(ctx, t.Package, r.timing.InstallAttempts, r.timing.InstallInterval) {
		if err := r.record(t, results.StatusFailed, "N/A"); err != nil {
			return err
		}
		r.attachScreenshot(ctx, sess, t.Package+"_install_failed", report.OutcomeFailed)
		return fmt.Errorf("failed to install %s within timeout", t.Package)
	}

	version := r.bridge.Version(ctx, t.Package)
	if err := r.record(t, results.StatusSuccess, version); err != nil {
		return err
	}
	r.attachScreenshot(ctx, sess, t.Package+"_installed", report.OutcomeSuccess)
	r.logf("%s: installed (version %s)", t.Name, version)
	return nil
}

// Verify launches the installed app and checks its expected UI element.
// An absent package is a skip, not a failure. Targets with a placeholder
// locator get a manual-review screenshot instead of an assertion.
func (r *Runner) Verify(ctx context.Context, t target.Target) error {
	installed, err := r.bridge.Installed(ctx, t.Package)
	if err != nil {
		return fmt.Errorf("failed to check presence of %s: %w", t.Package, err)
	}
	if !installed {
		r.logf("%s (%s): not installed, skipping UI verification", t.Name, t.Package)
		return nil
	}

	sess, err := r.driver.NewSession(ctx, uiauto.GenericCapabilities(r.deviceName))
	if err != nil {
		return fmt.Errorf("failed to open driver session: %w", err)
	}
	defer sess.Quit(context.WithoutCancel(ctx))

	launchArgs := []string{"-p", t.Package, "-c", "android.intent.category.LAUNCHER", "1"}
	if err := sess.Shell(ctx, "monkey", launchArgs, 10*time.Second); err != nil {
		r.logf("%s: driver shell launch failed (%v), falling back to adb", t.Name, err)
		if err := r.bridge.LaunchApp(ctx, t.Package); err != nil {
			return fmt.Errorf("failed to launch %s: %w", t.Package, err)
		}
	}
	sleep(ctx, r.timing.LaunchSettle)

	if t.Locator.Placeholder() {
		r.attachScreenshot(ctx, sess, t.Package+"_ui_manual_check", report.OutcomeManual)
		r.logf("%s: no UI locator configured, screenshot saved for manual review", t.Name)
		return nil
	}

	_, found, err := sess.WaitFor(ctx, t.Locator, r.timing.UIWait)
	if err != nil {
		return fmt.Errorf("failed while waiting for UI element of %s: %w", t.Package, err)
	}
	if !found {
		r.attachScreenshot(ctx, sess, t.Package+"_ui_failed", report.OutcomeFailed)
		return fmt.Errorf("%s UI element not found: %s", t.Name, t.Locator.Value)
	}

	r.attachScreenshot(ctx, sess, t.Package+"_ui_verified", report.OutcomeSuccess)
	r.logf("%s: UI verified", t.Name)
	return nil
}

// Run executes all three phases for every target in order. A failing
// target does not stop the remaining ones; all failures are aggregated.
func (r *Runner) Run(ctx context.Context, targets []target.Target) error {
	var errs []error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		r.logf("Checking %s (%s)...", t.Name, t.Package)
		if err := r.Uninstall(ctx, t); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Install(ctx, t); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Verify(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
