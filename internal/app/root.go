package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	deviceName  string
	adbSerial   string
	resultsPath string
	dbPath      string
	targetsPath string
	attachDir   string

	// RootCmd is the root command for storecheck
	RootCmd = &cobra.Command{
		Use:   "storecheck",
		Short: "Play Store installation and launch checks for Android apps",
		Long: `storecheck verifies that a list of Android applications can be
uninstalled, reinstalled from the Google Play Store, and launched to a
known UI state on a connected device.

It drives the store UI through a UiAutomator2 automation server and the
device itself through adb. Each app goes through three phases:

  1. uninstall  - remove the app and verify it is gone
  2. install    - open its Play Store page, press Install, poll until
                  the package appears (bounded at 90s)
  3. verify     - launch the app and wait for its expected UI element

Install outcomes are appended to installation_results.json after every
attempt and kept in a local run-history database. Screenshots land in
the attachments directory for CI artifact upload.

Requirements:
  - adb on PATH (or ANDROID_HOME set) with a device attached
  - a UiAutomator2 server, e.g. 'appium' listening on 127.0.0.1:4723`,
		Example: `  # Full check of every configured app
  storecheck run

  # Phases individually, or for a single app
  storecheck uninstall
  storecheck install fi.sbweather.app
  storecheck verify fi.sbweather.app

  # Outcome of the latest run
  storecheck status
  storecheck status --follow`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("storecheck: Play Store installation checks for Android apps")
			fmt.Println()
			fmt.Println("Run 'storecheck run' to check all configured apps.")
			fmt.Println("Run 'storecheck --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "automation server URL (default: http://127.0.0.1:4723)")
	RootCmd.PersistentFlags().StringVar(&deviceName, "device-name", "Android_test_device", "device name passed in driver capabilities")
	RootCmd.PersistentFlags().StringVar(&adbSerial, "serial", "", "adb device serial (default: the only attached device)")
	RootCmd.PersistentFlags().StringVar(&resultsPath, "results", "", "results file path (default: ./installation_results.json)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (default: ~/.storecheck/storecheck.db)")
	RootCmd.PersistentFlags().StringVar(&targetsPath, "config", "", "targets file (default: $XDG_CONFIG_HOME/storecheck/targets.yaml)")
	RootCmd.PersistentFlags().StringVar(&attachDir, "attachments", "", "screenshot directory (default: ~/.storecheck/attachments)")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// dataDir returns ~/.storecheck, creating it if needed.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".storecheck")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storecheck directory: %w", err)
	}
	return dir, nil
}

// getDBPath returns the database path, using the flag value or default.
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "storecheck.db"), nil
}

// getAttachmentsDir returns the screenshot directory.
func getAttachmentsDir() (string, error) {
	if attachDir != "" {
		return attachDir, nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "attachments"), nil
}
