package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-statements/internal/account"
	"github.com/Veraticus/spice-statements/internal/cli"
	"github.com/Veraticus/spice-statements/internal/export"
	"github.com/Veraticus/spice-statements/internal/model"
)

func accountFlagHelp() string {
	tags := make([]string, 0, len(model.AccountKinds()))
	for _, kind := range model.AccountKinds() {
		tags = append(tags, fmt.Sprintf("%q", kind.Tag()))
	}
	return "account type: " + strings.Join(tags, ", ")
}

func parseCmd(a *app) *cobra.Command {
	var (
		accountTag string
		format     string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "parse <statement>",
		Short: "Extract transactions from a statement without categorizing them",
		Long: `Extract transactions from a statement without categorizing them.
A statement with no transactions in it is reported and exits 0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := account.NewRegistry(a.logger)
			profile, err := registry.LookupTag(accountTag)
			if err != nil {
				return err
			}

			txns, err := registry.ParseFile(cmd.Context(), profile.Kind, args[0])
			if a.reportNoTransactions(err, args[0]) {
				return nil
			}
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := export.WriteFile(a.fs, outPath, txns, nil); err != nil {
					return persistError(outPath, err)
				}
				fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf("Wrote %d transactions to %s", len(txns), outPath)))
				return nil
			}

			switch strings.ToLower(format) {
			case "", "table":
				return cli.RenderTransactions(a.out, txns)
			default:
				exportFormat, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				return export.Write(a.out, exportFormat, txns, nil)
			}
		},
	}

	cmd.Flags().StringVarP(&accountTag, "account", "a", "", accountFlagHelp())
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format when writing to stdout (table, csv, xlsx)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a .csv or .xlsx file instead of stdout")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
