package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded races, newest first",
	Annotations: map[string]string{
		storeAnnotation: "required",
	},
	Run: func(cmd *cobra.Command, args []string) {
		races, err := DB.ListRaces(cmd.Context(), historyLimit)
		if err != nil {
			utils.Die("Failed to list races", err)
		}
		printRaces(os.Stdout, races)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum races to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func printRaces(out io.Writer, races []store.RaceRecord) {
	if len(races) == 0 {
		fmt.Fprintln(out, "No races recorded yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RACE\tHORSE A\tHORSE B\tWINNER\tSCORES\tWHEN")
	fmt.Fprintln(w, "----\t-------\t-------\t------\t------\t----")

	for _, r := range races {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f / %.1f\t%s\n",
			r.ID.String()[:8], r.NameA, r.NameB, r.Result.Winner,
			r.Result.ScoreA, r.Result.ScoreB, humanize.Time(r.RacedAt))
	}
	w.Flush()
}
