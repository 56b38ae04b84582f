package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xtding233/gacha-stage/internal/gacha"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Monte Carlo pulls-to-completion or pulls-to-first-shiny under the current tuning",
	RunE: func(cmd *cobra.Command, _ []string) error {
		goal, _ := cmd.Flags().GetString("goal")
		trials, _ := cmd.Flags().GetInt("trials")
		_, params, err := loadTuning()
		if err != nil {
			return err
		}
		sizes := make(map[gacha.Tier]int, len(gacha.Tiers))
		for _, t := range gacha.Tiers {
			sizes[t], _ = cmd.Flags().GetInt(t.Folder())
		}

		rng := gacha.DefaultRNG()
		if seed := viper.GetUint64("seed"); seed != 0 {
			rng = gacha.NewSeededRNG(seed)
		}
		st, err := gacha.RunMonteCarlo(gacha.SimParams{Rules: params.Rules, SetSize: sizes}, gacha.TrialGoal(goal), trials, rng)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "goal=%s trials=%d\n", goal, trials)
		fmt.Fprintf(out, "mean=%.1f sd=%.1f p50=%.0f p90=%.0f p99=%.0f capped=%d\n",
			st.Mean, st.StdDev, st.P50, st.P90, st.P99, st.Capped)
		return nil
	},
}

func init() {
	simulateCmd.Flags().String("goal", string(gacha.GoalCompletion), "completion or first_shiny")
	simulateCmd.Flags().Int("trials", 2000, "Number of simulated players")
	defaults := map[gacha.Tier]int{gacha.TierUR: 1, gacha.TierSSR: 2, gacha.TierSR: 4, gacha.TierR: 8, gacha.TierN: 16}
	for _, t := range gacha.Tiers {
		simulateCmd.Flags().Int(t.Folder(), defaults[t], fmt.Sprintf("Entries of rarity %s in the simulated set", t))
	}
	rootCmd.AddCommand(simulateCmd)
}
