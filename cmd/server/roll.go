package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xtding233/gacha-stage/internal/stage"
)

var rollCmd = &cobra.Command{
	Use:   "roll <user> [pulls]",
	Short: "Roll pulls for a user and print the results",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pulls := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid pull count %q", args[1])
			}
			pulls = n
		}
		carry, _ := cmd.Flags().GetInt("carry")
		animate, _ := cmd.Flags().GetBool("animate")

		log, err := newLogger()
		if err != nil {
			return err
		}
		_, params, err := loadTuning()
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		engine := newEngine(st, params, log)
		batch, err := engine.RollBatch(ctx, args[0], pulls, engine.Purse().Cap(carry))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s rolled %d (granted %d, %d %s banked) in %q\n",
			args[0], batch.Requested, batch.Granted, batch.CarryOver, params.Purse.Name, batch.Set)
		for i, o := range batch.Outcomes {
			fmt.Fprintln(out, stage.FormatLine(i+1, o))
		}
		if n := batch.Skipped(); n > 0 {
			fmt.Fprintf(out, "%d pull(s) skipped: no entries for the drawn rarity\n", n)
		}

		if !animate {
			return nil
		}
		client, closeClient, err := sceneClient(ctx, params, log)
		if err != nil {
			return err
		}
		defer closeClient()
		orch := stage.NewOrchestrator(client, stage.WriterAnnouncer{W: out}, params.Stage, log)
		rep := orch.AnimateBatch(ctx, args[0], batch)
		for _, g := range rep.Groups {
			fmt.Fprintf(out, "group %d: %s, %d/%d staged, %d created, %d removed\n",
				g.Index+1, g.State, g.Staged, g.Cards, g.Created, g.Removed)
		}
		return nil
	},
}

func init() {
	rollCmd.Flags().Int("carry", 0, "Currency contributed with this roll (capped by tuning)")
	rollCmd.Flags().Bool("animate", false, "Animate the batch on stage after rolling")
	rootCmd.AddCommand(rollCmd)
}
