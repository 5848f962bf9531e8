package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nordapps/storecheck/internal/target"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the configured target apps",
	Long: `List the apps storecheck is configured to check, together with the
UI locator used during verification.

The built-in list can be replaced by a targets.yaml file in the config
directory or via --config:

  targets:
    - package: fi.sbweather.app
      name: Sebitti Sää
      locator:
        kind: accessibility_id
        value: "KOTI\nTab 1 of 3"`,
	Example: `  storecheck targets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := target.Load(targetsPath)
		if err != nil {
			return err
		}

		fmt.Printf("%-26s %-16s %-17s %s\n", "Package", "Name", "Locator kind", "Locator value")
		fmt.Println(strings.Repeat("─", 90))
		for _, t := range targets {
			value := strings.ReplaceAll(t.Locator.Value, "\n", "\\n")
			if t.Locator.Placeholder() {
				value = "(manual review)"
			}
			fmt.Printf("%-26s %-16s %-17s %s\n", t.Package, t.Name, t.Locator.Kind, value)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(targetsCmd)
}
