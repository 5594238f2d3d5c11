package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/commander-craft/internal/deckbuilder"
	"github.com/ramonehamilton/commander-craft/internal/deckexport"
	"github.com/ramonehamilton/commander-craft/internal/events"
)

var generateOpts struct {
	partner   string
	identity  string
	budget    float64
	mechanics []string
	owned     []string
	lands     float64
	format    string
	output    string
	stats     bool
	noSave    bool
}

var generateCmd = &cobra.Command{
	Use:   "generate <commander>",
	Short: "Generate a deck for a commander",
	Example: `  commander-craft generate "Atraxa, Praetors' Voice" --budget 150 --mechanic counters
  commander-craft generate "Tymna the Weaver" --partner "Thrasios, Triton Hero" --format moxfield`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateOpts.partner, "partner", "", "partner commander")
	f.StringVar(&generateOpts.identity, "ci", "", "color identity such as WUB or C; looked up from the commander when empty")
	f.Float64Var(&generateOpts.budget, "budget", 0, "spell budget, 0 for unlimited")
	f.StringArrayVar(&generateOpts.mechanics, "mechanic", nil, "theme tag to favor (repeatable, up to 3)")
	f.StringArrayVar(&generateOpts.owned, "owned", nil, "card you already own (repeatable)")
	f.Float64Var(&generateOpts.lands, "lands", 0, "target land count (default from config)")
	f.StringVar(&generateOpts.format, "format", string(deckexport.FormatText), "output format: text, json or moxfield")
	f.StringVarP(&generateOpts.output, "output", "o", "", "write the deck to a file instead of stdout")
	f.BoolVar(&generateOpts.stats, "stats", true, "add a summary block to text output")
	f.BoolVar(&generateOpts.noSave, "no-save", false, "skip the database: no card cache and no deck history")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := deckexport.ExportFormat(generateOpts.format)
	if !lo.Contains(deckexport.Formats(), format) {
		return fmt.Errorf("unsupported format %q, expected one of %v", format, deckexport.Formats())
	}

	a, err := newApp(ctx, cfg, logger, !generateOpts.noSave)
	if err != nil {
		return err
	}
	defer a.Close()

	stderr := cmd.ErrOrStderr()
	a.dispatcher.Register(events.NewFuncObserver("cli-progress", func(e events.Event) {
		if p, ok := events.GetTypedData[events.GenerationProgressEvent](e); ok {
			fmt.Fprintf(stderr, "[%d/%d] %s\n", p.Step, p.StepCount, p.Message)
		}
	}, events.TypeGenerationProgress))

	req := deckbuilder.Request{
		Commander:  args[0],
		Partner:    generateOpts.partner,
		Budget:     generateOpts.budget,
		Mechanics:  generateOpts.mechanics,
		OwnedCards: generateOpts.owned,
	}
	if cmd.Flags().Changed("ci") {
		req.ColorIdentity = &generateOpts.identity
	}
	if cmd.Flags().Changed("lands") {
		req.TargetLands = &generateOpts.lands
	}

	res, err := a.pipeline.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed (%s): %w", deckbuilder.CodeOf(err), err)
	}

	for _, w := range res.Deck.Warnings {
		fmt.Fprintf(stderr, "warning: %s: %s\n", w.Kind, w.Message)
	}
	if a.edhrec != nil {
		names := res.Deck.CommanderNames()
		counts := a.edhrec.CommanderDeckCounts(ctx, names)
		for _, name := range names {
			if n, ok := counts[name]; ok {
				fmt.Fprintf(stderr, "%s: %d decks on EDHREC\n", name, n)
			}
		}
	}

	out, err := deckexport.Export(res.Deck, &deckexport.ExportOptions{Format: format, IncludeStats: generateOpts.stats})
	if err != nil {
		return err
	}
	if generateOpts.output != "" {
		if err := os.WriteFile(generateOpts.output, []byte(out.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write deck: %w", err)
		}
		fmt.Fprintf(stderr, "deck %s written to %s\n", res.Deck.ID, generateOpts.output)
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out.Content)
	return err
}
