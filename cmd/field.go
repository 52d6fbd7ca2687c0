package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/strategy"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fieldDistance string
	fieldRegistry bool
)

var fieldCmd = &cobra.Command{
	Use:   "field [horse_stats.json ...]",
	Short: "Assign running styles (front runner, presser, stalker, closer) to a field of horses",
	Long: "Scores every horse against the field average and splits the field evenly across the four running styles, " +
		"then prints each style's pace plan for the chosen distance. Horses come from card files, the registry (--registry), or both.",
	Annotations: map[string]string{
		storeAnnotation: "registry",
	},
	Run: func(cmd *cobra.Command, args []string) {
		d, err := strategy.ParseDistance(fieldDistance)
		if err != nil {
			utils.Die("Invalid distance", err)
		}

		var reg store.Store
		if fieldRegistry {
			reg = DB
		}
		field, err := runField(cmd.Context(), args, reg, d)
		if err != nil {
			utils.Die("Failed to assign strategies", err)
		}

		fmt.Fprintf(os.Stderr, "🏇 %d horses, %s course\n", len(field), d)
		printField(os.Stdout, field)
	},
}

func init() {
	fieldCmd.Flags().StringVarP(&fieldDistance, "distance", "d", "", "Course: short, middle, long or a length in track units (default: standard short course)")
	fieldCmd.Flags().BoolVar(&fieldRegistry, "registry", false, "Add every registered card to the field")
	rootCmd.AddCommand(fieldCmd)
}

// runField loads the cards named by paths, then the registry cards when reg is
// non-nil, and assigns strategies across all of them.
func runField(ctx context.Context, paths []string, reg store.Store, d strategy.Distance) ([]strategy.Assignment, error) {
	var cards []types.StatCard
	for _, p := range paths {
		text, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		c, err := card.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		cards = append(cards, c)
	}

	if reg != nil {
		records, err := reg.ListCards(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing registry cards: %w", err)
		}
		for _, r := range records {
			cards = append(cards, r.Card)
		}
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: pass card files or --registry", strategy.ErrEmptyField)
	}

	field, err := strategy.Assign(strategy.FromCards(cards), d)
	if err != nil {
		return nil, err
	}
	for _, a := range field {
		Logger.Debug("strategy assigned", zap.String("name", a.Name), zap.String("strategy", string(a.Strategy)))
	}
	return field, nil
}

func printField(out io.Writer, field []strategy.Assignment) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRATEGY\tEARLY\tMID\tLATE\tDRAIN\tKICK AT")
	fmt.Fprintln(w, "----\t--------\t-----\t---\t----\t-----\t-------")

	for _, a := range field {
		p := a.Params
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f%%\n",
			a.Name, a.Strategy, p.EarlyPace, p.MidPace, p.LatePace, p.EnergyDrain, p.KickPhase*100)
	}
	w.Flush()

	mix := strategy.Mix(field)
	parts := make([]string, 0, len(strategy.All))
	for _, s := range strategy.All {
		parts = append(parts, fmt.Sprintf("%s %d", s, mix[s]))
	}
	fmt.Fprintf(out, "\n📊 Strategy mix: %s\n", strings.Join(parts, ", "))
}
