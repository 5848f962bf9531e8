package app

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nordapps/storecheck/internal/output"
	"github.com/nordapps/storecheck/internal/results"
	"github.com/nordapps/storecheck/internal/store"
)

var statusFollow bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the latest check run",
	Long: `Display the installation results of the most recent storecheck run
from the history database.

With --follow the results file is watched and the table re-rendered
whenever a running check appends a result, which is useful in a second
terminal while 'storecheck run' is in progress. Press Ctrl-C to stop.`,
	Example: `  # Latest run
  storecheck status

  # Live view of a run in progress
  storecheck status --follow`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFollow, "follow", false, "watch the results file and re-render on change")
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFollow {
		return followResults()
	}

	path, err := getDBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No runs recorded yet. Run 'storecheck run' first.")
		return nil
	}

	db, err := store.New(path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	run, err := db.LatestRun()
	if err != nil {
		return err
	}

	records, err := db.RunResults(run.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Run #%d started %s", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Printf(", finished %s", run.FinishedAt.Format("15:04:05"))
	}
	if run.Device != "" {
		fmt.Printf(" (device %s)", run.Device)
	}
	fmt.Println()
	fmt.Println()
	fmt.Print(output.RenderResultTable(records))
	return nil
}

// resultsFileForStatus resolves the file --follow watches.
func resultsFileForStatus() string {
	if resultsPath != "" {
		return resultsPath
	}
	return results.DefaultFile
}

// renderResultsFile loads and prints the results file contents.
func renderResultsFile(path string) {
	records, err := results.Load(path)
	if err != nil {
		fmt.Printf("could not read %s: %v\n", path, err)
		return
	}
	fmt.Print(output.RenderResultTable(records))
}

// followResults watches the results file and re-renders its table on
// every write until interrupted. The watch is on the parent directory
// so the file may appear after the watch starts.
func followResults() error {
	path := resultsFileForStatus()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n\n", path)
	renderResultsFile(path)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			eventPath, err := filepath.Abs(event.Name)
			if err != nil || eventPath != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				fmt.Println()
				renderResultsFile(path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("watch error: %v\n", err)

		case <-interrupt:
			return nil
		}
	}
}
