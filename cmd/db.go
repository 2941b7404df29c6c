package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/advertile/campwatch/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the check archive",
}

var dbLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent archived checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Parent().PersistentFlags().GetInt("limit")
		db, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.LatestChecks(context.Background(), limit)
		if err != nil {
			return err
		}
		printCheckRows(rows)
		return nil
	},
}

var dbCampaignCmd = &cobra.Command{
	Use:   "campaign <id>",
	Short: "Show archived checks for one campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Parent().PersistentFlags().GetInt("limit")
		db, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.CampaignChecks(context.Background(), args[0], limit)
		if err != nil {
			return err
		}
		printCheckRows(rows)
		return nil
	},
}

func openArchive(cmd *cobra.Command) (*storage.DB, error) {
	dbPath, _ := cmd.Parent().PersistentFlags().GetString("dbpath")
	if dbPath == "" {
		dbPath = filepath.Join(viper.GetString("data.dir"), "campwatch.sqlite")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("check archive not found: %s", dbPath)
	}
	return storage.Open(dbPath)
}

func printCheckRows(rows []storage.CheckRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCAMPAIGN\tKIND\tOK\tFAILURE\tSTATUS\tMS\tURL")
	for _, r := range rows {
		name := r.CampaignTitle
		if name == "" {
			name = r.CampaignID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%d\t%d\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), name, r.Kind, r.OK, r.FailureType, r.HTTPStatus, r.ElapsedMs, r.TestedURL)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbLatestCmd)
	dbCmd.AddCommand(dbCampaignCmd)
	dbCmd.PersistentFlags().String("dbpath", "", "Path to the SQLite check archive (default: <data.dir>/campwatch.sqlite)")
	dbCmd.PersistentFlags().Int("limit", 50, "Number of rows to show")
}
