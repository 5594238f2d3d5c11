package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/commander-craft/internal/deckbuilder"
)

var randomCommanderCmd = &cobra.Command{
	Use:   "random-commander [identity]",
	Short: "Pick a random legal commander",
	Long:  "Draw a random Commander-legal commander from Scryfall, optionally restricted to a color identity. Companions are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		if len(args) == 1 {
			raw = args[0]
		}
		ci, err := deckbuilder.ParseIdentity(raw)
		if err != nil {
			return err
		}

		card, err := newScryfallClient(cfg, logger).RandomCommander(cmd.Context(), ci)
		if err != nil {
			return err
		}
		rec := card.ToRecord(strings.ToUpper(cfg.Scryfall.Currency))
		identity := rec.ColorIdentity.String()
		fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s\n", rec.Name, identity, rec.TypeLine)
		if rec.ScryfallURI != "" {
			fmt.Fprintln(cmd.OutOrStdout(), rec.ScryfallURI)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(randomCommanderCmd)
}
