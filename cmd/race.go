package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/race"
	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	raceSeed   uint64
	raceRecord bool
)

var raceCmd = &cobra.Command{
	Use:   "race <horse_a_stats.json> <horse_b_stats.json>",
	Short: "Race two saved horses",
	Long:  "Scores each horse as 0.5*speed + 0.35*stamina + 0.15*jump plus a random nudge in [-10, 10]. Ties go to horse A.",
	Args:  cobra.ExactArgs(2),
	Annotations: map[string]string{
		storeAnnotation: "record",
	},
	Run: func(cmd *cobra.Command, args []string) {
		scorer := race.New()
		if cmd.Flags().Changed("seed") {
			scorer = race.NewSeeded(raceSeed)
		}

		var reg store.Store
		if raceRecord {
			reg = DB
		}
		res, err := runRace(cmd.Context(), scorer, args[0], args[1], reg)
		if err != nil {
			if errors.Is(err, card.ErrValidation) {
				fmt.Fprintf(os.Stderr, "❌ %s\n", race.Message)
			}
			utils.Die("Race could not start", err)
		}

		fmt.Printf("🏁 %s\n", race.Format(res))
	},
}

func init() {
	raceCmd.Flags().Uint64Var(&raceSeed, "seed", 0, "Seed the random nudge for a reproducible race")
	raceCmd.Flags().BoolVar(&raceRecord, "record", false, "Record the outcome in the registry")
	rootCmd.AddCommand(raceCmd)
}

// runRace reads both card files and races them. Card text is used exactly as saved.
func runRace(ctx context.Context, scorer *race.Scorer, pathA, pathB string, reg store.Store) (types.RaceResult, error) {
	textA, err := os.ReadFile(pathA)
	if err != nil {
		return types.RaceResult{}, fmt.Errorf("horse A: %w", err)
	}
	textB, err := os.ReadFile(pathB)
	if err != nil {
		return types.RaceResult{}, fmt.Errorf("horse B: %w", err)
	}

	res, err := scorer.Race(textA, textB)
	if err != nil {
		return res, err
	}
	Logger.Debug("race scored", zap.String("winner", res.Winner),
		zap.Float64("score_a", res.ScoreA), zap.Float64("score_b", res.ScoreB))

	if reg != nil {
		// Both texts parsed inside Race, so these cannot fail.
		a, _ := card.Parse(textA)
		b, _ := card.Parse(textB)
		rec, err := reg.RecordRace(ctx, a.Name, b.Name, res)
		if err != nil {
			return res, fmt.Errorf("recording race: %w", err)
		}
		Logger.Info("race recorded", zap.String("id", rec.ID.String()))
	}
	return res, nil
}
