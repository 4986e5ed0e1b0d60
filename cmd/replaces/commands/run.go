package commands

import (
	"fmt"
	"log/slog"

	"replaces-backend/internal/components/serviceutil"
	"replaces-backend/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	runGroups        *[]int
	runForceFallback *bool
)

func init() {
	runGroups = runCmd.Flags().IntSlice("group", nil, "Groups to produce messages for, defaults to the groups in the config.")
	runForceFallback = runCmd.Flags().Bool("force-fallback", false, "Skip endpoint resolution and use the cached endpoint.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--group <n>...] [--force-fallback]",
	Short: "Fetches the replacements page once and prints the messages of every changed group.",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context(), pipeline.Options{ForceFallback: *runForceFallback})
		defer a.Close()

		groups := *runGroups
		if len(groups) == 0 {
			groups = a.config.Groups
		}

		result, err := a.driver.Run(cmd.Context(), a.driver.GroupHooks(groups...))
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to refresh replacements", err)
		}

		slog.Info(
			"run finished",
			"run_id", result.RunID,
			"outcome", result.Outcome.String(),
			"hash", result.Hash,
			"degraded", result.Degraded,
		)
		if result.HookErr != nil {
			slog.Warn("some groups failed", "err", result.HookErr.Error())
		}
		for _, msg := range result.Messages {
			fmt.Println(msg.Text)
		}
	},
}
