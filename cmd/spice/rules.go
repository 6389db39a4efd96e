package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-statements/internal/cli"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/Veraticus/spice-statements/internal/rules"
)

func rulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Inspect the rule file",
	}
	cmd.AddCommand(rulesValidateCmd(a))
	cmd.AddCommand(rulesLearnedCmd(a))
	cmd.AddCommand(rulesConvertCmd(a))
	return cmd
}

func (a *app) loadRules(cmd *cobra.Command) (*rules.Document, error) {
	return rules.NewFileBackend(a.fs, a.cfg.RulesPath).Load(cmd.Context())
}

func rulesValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the rule file loads and summarize it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.loadRules(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, cli.FormatSuccess(a.cfg.RulesPath+" is valid"))
			for _, set := range doc.AccountTerms {
				fmt.Fprintf(a.out, "  %-24s %d account term(s)\n", set.Account, len(set.Terms))
				if _, err := model.ParseAccountKind(set.Account); err != nil {
					fmt.Fprintln(a.out, cli.FormatWarning(fmt.Sprintf("terms for %q will never match: not a supported account type", set.Account)))
				}
			}
			fmt.Fprintf(a.out, "  %-24s %d\n", "learned patterns", len(doc.LearnedPatterns))
			fmt.Fprintf(a.out, "  %-24s %d\n", "keyword categories", len(doc.Categories))

			for _, e := range doc.LearnedPatterns {
				if !slices.Contains(model.Categories, e.Category) {
					fmt.Fprintln(a.out, cli.FormatWarning(fmt.Sprintf("learned pattern %q maps to unknown category %q", e.Key, e.Category)))
				}
			}
			return nil
		},
	}
}

func rulesLearnedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "learned",
		Short: "List learned merchant patterns in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.loadRules(cmd)
			if err != nil {
				return err
			}
			if len(doc.LearnedPatterns) == 0 {
				fmt.Fprintln(a.out, cli.FormatInfo("No learned patterns yet"))
				return nil
			}

			patterns := make([]model.ProposedPattern, 0, len(doc.LearnedPatterns))
			for _, e := range doc.LearnedPatterns {
				patterns = append(patterns, model.ProposedPattern{Merchant: e.Key, Category: e.Category})
			}
			return cli.RenderProposals(a.out, patterns)
		},
	}
}

func rulesConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <out>",
		Short: "Rewrite the rule file as JSON or YAML, keeping rule order",
		Long: `Rewrite the rule file to <out>. A .json extension writes JSON; anything
else writes YAML. Rule order and unrecognized top-level keys are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadRules(cmd)
			if err != nil {
				return err
			}
			if err := rules.NewFileBackend(a.fs, args[0]).Save(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf("Wrote %s as %s", args[0], rules.FormatFor(args[0]))))
			return nil
		},
	}
}
