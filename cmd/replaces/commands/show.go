package commands

import (
	"fmt"
	"os"

	"replaces-backend/internal/components/serviceutil"
	"replaces-backend/internal/hooks"
	"replaces-backend/internal/pipeline"
	"replaces-backend/internal/replaces"

	"github.com/spf13/cobra"
)

var showGroup *int

func init() {
	showGroup = showCmd.Flags().Int("group", 0, "Only show the replacements of this group.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [--group <n>]",
	Short: "Renders the latest stored replacements page.",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context(), pipeline.Options{})
		defer a.Close()

		doc, record, ok, err := a.driver.Latest(cmd.Context())
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to read the latest page", err)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "no replacements were stored yet")
			return
		}

		fmt.Fprintf(os.Stderr, "fetched at %s (%s)\n", record.Time.Format("2006-01-02 15:04:05 MST"), record.Hash)
		if *showGroup > 0 {
			fmt.Println(hooks.GroupMessage(*showGroup, doc))
			return
		}
		fmt.Print(replaces.RenderReplaces(doc))
	},
}
