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

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered stat cards",
	Annotations: map[string]string{
		storeAnnotation: "required",
	},
	Run: func(cmd *cobra.Command, args []string) {
		cards, err := DB.ListCards(cmd.Context())
		if err != nil {
			utils.Die("Failed to list cards", err)
		}
		printCards(os.Stdout, cards)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printCards(out io.Writer, cards []store.CardRecord) {
	if len(cards) == 0 {
		fmt.Fprintln(out, "No cards found in the registry.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSPEED\tSTAMINA\tJUMP\tIMAGE\tSIZE\tCREATED")
	fmt.Fprintln(w, "--\t----\t-----\t-------\t----\t-----\t----\t-------")

	for _, c := range cards {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			c.ID, c.Card.Name, c.Card.Speed, c.Card.Stamina, c.Card.Jump,
			utils.ShortID(c.ImageID), humanize.Bytes(uint64(c.ImageSize)), humanize.Time(c.CreatedAt))
	}
	w.Flush()
}
