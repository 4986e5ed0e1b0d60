package commands

import (
	"os"
	"time"

	"replaces-backend/internal/components/serviceutil"
	"replaces-backend/internal/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "The amount of records to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>]",
	Short: "Lists the stored replacements pages, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context(), pipeline.Options{})
		defer a.Close()

		records, err := a.store.List(cmd.Context(), *historyLimit)
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to list history", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Fetched at", "Hash", "Size"})
		for _, r := range records {
			t.AppendRow(table.Row{r.ID, r.Time.Format(time.RFC3339), r.Hash, r.Size})
		}
		t.Render()
	},
}
