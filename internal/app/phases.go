package app

import (
	"errors"
	"fmt"

	"github.com/nordapps/storecheck/internal/output"
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [package...]",
	Short: "Uninstall target apps and verify they are gone",
	Long: `Uninstall each target app from the device via adb and verify the
package is absent afterwards.

Apps that are not installed are skipped and noted; re-running this
command is safe. A package that survives its uninstall fails the
command.`,
	Example: `  # Uninstall every configured app
  storecheck uninstall

  # A single app
  storecheck uninstall fi.sbweather.app`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args)
		if err != nil {
			return err
		}
		defer s.close()

		var errs []error
		for _, t := range s.targets {
			if err := s.runner.Uninstall(cmd.Context(), t); err != nil {
				fmt.Printf("✗ %s: %v\n", t.Name, err)
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	},
}

var installCmd = &cobra.Command{
	Use:   "install [package...]",
	Short: "Install target apps from the Play Store",
	Long: `Install each target app from the Google Play Store by driving the
store UI: the app's store page is opened with a market intent, the
Install button is pressed, and package presence is polled for up to 90
seconds.

When no Install button shows up the package is re-checked directly, so
an already installed app still counts as a success. Every attempt
appends one record to the results file; failures also capture a
screenshot.`,
	Example: `  # Install every configured app
  storecheck install

  # A single app
  storecheck install com.feelment`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.checkDriver(cmd.Context()); err != nil {
			return err
		}

		var errs []error
		for _, t := range s.targets {
			if err := s.runner.Install(cmd.Context(), t); err != nil {
				fmt.Printf("✗ %s: %v\n", t.Name, err)
				errs = append(errs, err)
			}
		}

		fmt.Println()
		fmt.Print(output.RenderResultTable(s.runner.Results()))
		return errors.Join(errs...)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [package...]",
	Short: "Launch target apps and check their UI loads",
	Long: `Launch each installed target app and wait up to 10 seconds for its
expected UI element. Apps that are not installed are skipped, not
failed. Targets without a configured locator get a screenshot for
manual review instead of an assertion.`,
	Example: `  # Verify every configured app
  storecheck verify

  # A single app
  storecheck verify fi.reportronic.app`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.checkDriver(cmd.Context()); err != nil {
			return err
		}

		var errs []error
		for _, t := range s.targets {
			if err := s.runner.Verify(cmd.Context(), t); err != nil {
				fmt.Printf("✗ %s: %v\n", t.Name, err)
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [package...]",
	Short: "Run all three phases for every target app",
	Long: `Run the full check sequence (uninstall, install from the Play
Store, UI verification) for each target app in order. A failing app
does not stop the remaining apps; the command exits non-zero if any
phase of any app failed.`,
	Example: `  # Check all configured apps
  storecheck run

  # Check one app end to end
  storecheck run com.iloq.smartlock.s50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.checkDevice(cmd.Context()); err != nil {
			return err
		}
		if err := s.checkDriver(cmd.Context()); err != nil {
			return err
		}

		runErr := s.runner.Run(cmd.Context(), s.targets)

		fmt.Println()
		fmt.Print(output.RenderResultTable(s.runner.Results()))
		return runErr
	},
}

func init() {
	RootCmd.AddCommand(uninstallCmd)
	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(runCmd)
}
