package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/deckbuilder"
)

var planLandsOpts struct {
	lands      float64
	commanders int
	asJSON     bool
}

var planLandsCmd = &cobra.Command{
	Use:   "plan-lands <identity>",
	Short: "Preview the mana base and slot plan for a color identity",
	Long:  "Print the land split and category targets a deck in the given identity would be built with. Use C for colorless.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := deckbuilder.ParseIdentity(args[0])
		if err != nil {
			return err
		}
		var desired *float64
		if cmd.Flags().Changed("lands") {
			desired = &planLandsOpts.lands
		}

		lands := commander.PlanLands(desired, ci, cfg.Lands)
		names := make([]string, planLandsOpts.commanders)
		for i := range names {
			names[i] = fmt.Sprintf("Commander %d", i+1)
		}
		plan, err := commander.PlanDeck(names, ci, lands, cfg.Categories)
		if err != nil {
			return err
		}

		if planLandsOpts.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}
		printPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	planLandsCmd.Flags().Float64Var(&planLandsOpts.lands, "lands", 0, "desired land count (clamped to the configured band)")
	planLandsCmd.Flags().IntVar(&planLandsOpts.commanders, "commanders", 1, "number of commanders (1 or 2)")
	planLandsCmd.Flags().BoolVar(&planLandsOpts.asJSON, "json", false, "print the plan as JSON")
	rootCmd.AddCommand(planLandsCmd)
}

func printPlan(w io.Writer, plan commander.DeckPlan) {
	fmt.Fprintf(w, "Color identity: %s\n", plan.ColorIdentity)
	fmt.Fprintf(w, "Lands: %d (%d non-basic, %d basic)\n", plan.Lands.Total, plan.Lands.NonBasic, plan.Lands.Basic)
	for _, b := range plan.Lands.Basics {
		if b.Count > 0 {
			fmt.Fprintf(w, "  %2d %s\n", b.Count, b.Name)
		}
	}
	fmt.Fprintf(w, "Non-land slots: %d\n", plan.NonLandSlots)
	for _, t := range plan.Targets {
		fmt.Fprintf(w, "  %-10s %d-%d\n", t.Name, t.Min, t.Max)
	}
	fmt.Fprintf(w, "  %-10s %d\n", commander.CategoryFlexible, plan.Flexible)
	if plan.Scaled {
		fmt.Fprintln(w, "Category minimums were scaled down to fit.")
	}
}
