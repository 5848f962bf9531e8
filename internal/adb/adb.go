// Package adb wraps the Android debug bridge CLI for the package
// management and launch commands storecheck needs.
package adb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes an adb invocation and returns its combined output.
// Tests substitute a fake; production code uses execRunner.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// Bridge issues commands to a single connected device.
type Bridge struct {
	serial string
	run    Runner
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithSerial pins the bridge to a specific device serial (adb -s).
func WithSerial(serial string) Option {
	return func(b *Bridge) { b.serial = serial }
}

// WithRunner replaces the adb process runner (used in tests).
func WithRunner(run Runner) Option {
	return func(b *Bridge) { b.run = run }
}

// New returns a Bridge talking to the default (or pinned) device.
func New(opts ...Option) *Bridge {
	b := &Bridge{run: execRunner}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the adb binary to invoke, preferring the platform-tools
// copy under ANDROID_HOME when it is set.
func Path() string {
	if home := os.Getenv("ANDROID_HOME"); home != "" {
		return home + "/platform-tools/adb"
	}
	return "adb"
}

func execRunner(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, Path(), args...)
	return cmd.CombinedOutput()
}

func (b *Bridge) command(ctx context.Context, args ...string) ([]byte, error) {
	if b.serial != "" {
		args = append([]string{"-s", b.serial}, args...)
	}
	return b.run(ctx, args...)
}

// Installed reports whether the exact package is installed on the device.
// The pm query matches by substring, so the output is checked for the
// exact "package:<pkg>" line.
func (b *Bridge) Installed(ctx context.Context, pkg string) (bool, error) {
	out, err := b.command(ctx, "shell", "pm", "list", "packages", pkg)
	if err != nil {
		return false, fmt.Errorf("pm list packages %s failed: %w (output: %s)", pkg, err, string(out))
	}

	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true, nil
		}
	}
	return false, nil
}

// Uninstall removes the package via pm uninstall. The pm tool reports
// failure on stdout rather than via exit code, so success is keyed on
// the "Success" marker.
func (b *Bridge) Uninstall(ctx context.Context, pkg string) error {
	out, err := b.command(ctx, "shell", "pm", "uninstall", pkg)
	if err != nil {
		return fmt.Errorf("pm uninstall %s failed: %w (output: %s)", pkg, err, string(out))
	}
	if !strings.Contains(string(out), "Success") {
		return fmt.Errorf("pm uninstall %s did not succeed: %s", pkg, strings.TrimSpace(string(out)))
	}
	return nil
}

// Version returns the installed versionName of the package, extracted
// from the dumpsys package dump. It returns "Unknown" when the package
// is absent or the dump cannot be read; it never returns an error.
func (b *Bridge) Version(ctx context.Context, pkg string) string {
	out, err := b.command(ctx, "shell", "dumpsys", "package", pkg)
	if err != nil {
		return "Unknown"
	}
	return parseVersionName(string(out))
}

// parseVersionName extracts the value of the first versionName= line.
func parseVersionName(dump string) string {
	for _, line := range strings.Split(dump, "\n") {
		idx := strings.Index(line, "versionName=")
		if idx < 0 {
			continue
		}
		v := strings.TrimSpace(line[idx+len("versionName="):])
		if v != "" {
			return v
		}
	}
	return "Unknown"
}

// WaitInstalled polls package presence up to attempts times with the
// given interval between checks. It returns true as soon as the package
// appears and false once the budget is exhausted or the context is done.
func (b *Bridge) WaitInstalled(ctx context.Context, pkg string, attempts int, interval time.Duration) bool {
	for i := 0; i < attempts; i++ {
		installed, err := b.Installed(ctx, pkg)
		if err == nil && installed {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return false
}

// LaunchApp starts the package's launcher activity via the monkey tool.
func (b *Bridge) LaunchApp(ctx context.Context, pkg string) error {
	out, err := b.command(ctx, "shell", "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return fmt.Errorf("monkey launch of %s failed: %w (output: %s)", pkg, err, string(out))
	}
	return nil
}

// OpenStorePage fires a VIEW intent for the package's market details
// page, bringing the store app to its install screen.
func (b *Bridge) OpenStorePage(ctx context.Context, pkg string) error {
	out, err := b.command(ctx, "shell", "am", "start",
		"-a", "android.intent.action.VIEW",
		"-d", "market://details?id="+pkg)
	if err != nil {
		return fmt.Errorf("market intent for %s failed: %w (output: %s)", pkg, err, string(out))
	}
	return nil
}

// Screencap captures the device screen as PNG bytes. Used as a fallback
// when no driver session is available to take the screenshot.
func (b *Bridge) Screencap(ctx context.Context) ([]byte, error) {
	out, err := b.command(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screencap failed: %w", err)
	}
	return out, nil
}

// Device is one row of `adb devices` output.
type Device struct {
	Serial string
	State  string
}

// Devices lists the devices known to the local adb server.
func (b *Bridge) Devices(ctx context.Context) ([]Device, error) {
	out, err := b.run(ctx, "devices")
	if err != nil {
		return nil, fmt.Errorf("adb devices failed: %w (output: %s)", err, string(out))
	}
	return parseDevices(string(out)), nil
}

// parseDevices parses `adb devices` output, skipping the banner line.
func parseDevices(out string) []Device {
	var devices []Device
	lines := strings.Split(out, "\n")
	for i := 1; i < len(lines); i++ {
		fields := strings.Fields(strings.TrimSpace(lines[i]))
		if len(fields) == 2 {
			devices = append(devices, Device{Serial: fields[0], State: fields[1]})
		}
	}
	return devices
}
