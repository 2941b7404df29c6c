package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/advertile/campwatch/pkg/checker"
)

// checkCmd runs one check pass and prints the results.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a one-shot campaign health check",
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFrom, _ := cmd.Flags().GetString("date-from")
		dateTo, _ := cmd.Flags().GetString("date-to")
		daysLookback, _ := cmd.Flags().GetInt("days-lookback")
		notify, _ := cmd.Flags().GetBool("notify")

		env := newJobEnv()
		rec, err := env.execute(context.Background(), "manual", checker.RunOptions{
			DateFrom:     dateFrom,
			DateTo:       dateTo,
			DaysLookback: daysLookback,
			Concurrency:  viper.GetInt("check.concurrency"),
		})
		if notify {
			env.notify(rec, err)
		}
		if err != nil {
			return err
		}

		for _, r := range rec.Results {
			state := "OK  "
			if !r.OK() {
				state = "FAIL"
			}
			fmt.Printf("%s %s (%s) cost=%.2f revenue=%.2f\n", state, r.Campaign.Title, r.Campaign.ID, r.Stats.Cost, r.Stats.Revenue)
			for _, ch := range r.Checks {
				mark := "ok"
				if !ch.OK {
					mark = ch.FailureType
				}
				fmt.Printf("  [%s] %-12s %s status=%d %dms %s\n", mark, ch.Kind, ch.TestedURL, ch.HTTPStatus, ch.ElapsedMs, ch.Message)
			}
			if len(r.Checks) == 0 {
				fmt.Println("  (no URLs to check)")
			}
		}
		fmt.Printf("\nChecked %d campaigns with activity (%s to %s). Failing: %d.\n",
			rec.TotalChecked, rec.DateFrom, rec.DateTo, rec.Failing)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("date-from", "", "Window start (YYYY-MM-DD); needs --date-to")
	checkCmd.Flags().String("date-to", "", "Window end (YYYY-MM-DD); needs --date-from")
	checkCmd.Flags().Int("days-lookback", 30, "Lookback window in days when no fixed dates are given")
	checkCmd.Flags().Bool("notify", false, "Send results to Telegram too")
}
