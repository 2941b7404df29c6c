package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/advertile/campwatch/pkg/history"
)

// runsCmd prints recent runs from the history document.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent check runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store := history.NewStore(filepath.Join(viper.GetString("data.dir"), "results.json"))
		doc, err := store.Load()
		if err != nil {
			return err
		}
		if len(doc.Runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for i, run := range doc.Runs {
			if i >= limit {
				break
			}
			ts := time.Unix(run.TS, 0).Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-9s  %s..%s  checked=%d failing=%d\n",
				ts, run.Kind, run.DateFrom, run.DateTo, run.TotalChecked, run.Failing)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "Number of runs to show")
}
