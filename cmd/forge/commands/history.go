package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/forge/history"
	"github.com/teranos/forge/logger"
)

// HistoryCmd represents the history command
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded compilation runs",
	Long: `Inspect the run-history database.

History is recorded when enabled in forge.toml or forced with the
compile command's --history flag.

Examples:
  forge history ls               # Recent runs, newest first
  forge history ls --limit 5     # Only the five most recent
  forge history show <run-id>    # Per-job outcomes for one run`,
}

var historyLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent runs",
	RunE:  runHistoryLs,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run's per-job outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var (
	historyDB    string
	historyLimit int
)

func init() {
	HistoryCmd.PersistentFlags().StringVar(&historyDB, "db", "", "History database path (default from config)")
	historyLsCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")

	HistoryCmd.AddCommand(historyLsCmd)
	HistoryCmd.AddCommand(historyShowCmd)
}

func openHistoryStore(cmd *cobra.Command) (*history.Store, func(), error) {
	path := historyDB
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, nil, err
		}
		path = cfg.History.Path
	}

	db, err := history.Open(path, logger.Logger)
	if err != nil {
		return nil, nil, err
	}
	return history.NewStore(db), func() { db.Close() }, nil
}

func runHistoryLs(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
	}

	if len(runs) == 0 {
		pterm.Info.Println("No recorded runs")
		return nil
	}

	rows := pterm.TableData{{"RUN", "STARTED", "JOBS", "OK", "SKIP", "ERR", "EXIT"}}
	for _, run := range runs {
		jobs := run.Successes + run.Skips + run.Errors
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Format(time.DateTime),
			fmt.Sprintf("%d", jobs),
			fmt.Sprintf("%d", run.Successes),
			fmt.Sprintf("%d", run.Skips),
			fmt.Sprintf("%d", run.Errors),
			fmt.Sprintf("%d", run.ExitCode),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	run, err := store.GetRun(args[0])
	if err != nil {
		return err
	}
	jobs, err := store.ListJobs(run.ID)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
			Run  *history.Run         `json:"run"`
			Jobs []*history.JobRecord `json:"jobs"`
		}{run, jobs})
	}

	pterm.DefaultSection.Printfln("Run %s", run.ID)
	pterm.Printfln("Started:  %s", run.StartedAt.Format(time.DateTime))
	if run.FinishedAt != nil {
		pterm.Printfln("Finished: %s", run.FinishedAt.Format(time.DateTime))
	}
	pterm.Printfln("Workers:  %d  dry-run: %v  keep-going: %v", run.Workers, run.DryRun, run.KeepGoing)
	pterm.Printfln("Tally:    %d ok, %d skipped, %d errors (exit %d)",
		run.Successes, run.Skips, run.Errors, run.ExitCode)

	if len(jobs) == 0 {
		return nil
	}
	rows := pterm.TableData{{"#", "SOURCE", "OUTCOME", "DETAIL", "MS"}}
	for _, job := range jobs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.Index),
			job.Source,
			job.Outcome,
			job.Detail,
			fmt.Sprintf("%d", job.ElapsedMS),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// shortID truncates a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
