package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-statements/internal/account"
	"github.com/Veraticus/spice-statements/internal/approval"
	"github.com/Veraticus/spice-statements/internal/cli"
	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/engine"
	"github.com/Veraticus/spice-statements/internal/export"
	"github.com/Veraticus/spice-statements/internal/llm"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/Veraticus/spice-statements/internal/rules"
	"github.com/Veraticus/spice-statements/internal/storage"
	"github.com/Veraticus/spice-statements/internal/tui"
)

// Approval modes for proposed patterns.
const (
	approveAll    = "all"
	approveNone   = "none"
	approvePrompt = "prompt"
	approveTUI    = "tui"
)

func categorizeCmd(a *app) *cobra.Command {
	var (
		accountTag  string
		approveMode string
		onError     string
		outPath     string
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "categorize <statement>",
		Short: "Categorize a statement and learn new merchant patterns",
		Long: `Categorize every transaction in a statement. Account terms, learned
patterns and category keywords from the rule file are tried first; anything
left goes to the language model. Merchants the model recognized are offered
as new learned patterns, and only the ones you approve are written back to
the rule file. A statement with no transactions in it is reported and
exits 0 without touching the rule file or the history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch approveMode {
			case approveAll, approveNone, approvePrompt, approveTUI:
			default:
				return fmt.Errorf("%w: --approve must be one of all, none, prompt, tui", common.ErrInvalidConfig)
			}
			policy := a.cfg.OnError
			if cmd.Flags().Changed("on-error") {
				var err error
				if policy, err = engine.ParseErrorPolicy(onError); err != nil {
					return err
				}
			}
			return a.categorize(cmd.Context(), categorizeOptions{
				path:        args[0],
				accountTag:  accountTag,
				approveMode: approveMode,
				outPath:     outPath,
				policy:      policy,
				saveHistory: !noHistory,
			})
		},
	}

	cmd.Flags().StringVarP(&accountTag, "account", "a", "", accountFlagHelp())
	cmd.Flags().StringVar(&approveMode, "approve", approvePrompt, "how to approve proposed patterns (all, none, prompt, tui)")
	cmd.Flags().StringVar(&onError, "on-error", "fail", "what a failed model call does (fail, degrade)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also write the categorized transactions to a .csv or .xlsx file")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

type categorizeOptions struct {
	path        string
	accountTag  string
	approveMode string
	outPath     string
	policy      engine.ErrorPolicy
	saveHistory bool
}

func (a *app) categorize(ctx context.Context, opts categorizeOptions) error {
	registry := account.NewRegistry(a.logger)
	profile, err := registry.LookupTag(opts.accountTag)
	if err != nil {
		return err
	}

	txns, err := registry.ParseFile(ctx, profile.Kind, opts.path)
	if a.reportNoTransactions(err, opts.path) {
		return nil
	}
	if err != nil {
		return err
	}

	store := rules.NewStore(rules.NewFileBackend(a.fs, a.cfg.RulesPath), a.logger)
	doc, err := store.Load(ctx)
	if err != nil {
		return err
	}

	classifier, err := a.newClassifier()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := classifier.Close(); closeErr != nil {
			a.logger.Warn("failed to close classifier", "error", closeErr)
		}
	}()

	progress := cli.NewProgress(a.errOut)
	eng := engine.New(classifier, engine.Config{
		Logger:      a.logger,
		Progress:    progress.Update,
		CallTimeout: a.cfg.CallTimeout,
		OnError:     opts.policy,
	})

	result, categorizeErr := eng.Categorize(ctx, txns, profile.Kind, profile.Hint, doc)
	if categorizeErr != nil {
		if result != nil && len(result.Decisions) > 0 {
			fmt.Fprintln(a.out, cli.FormatWarning(fmt.Sprintf("Stopped after categorizing %d of %d transactions", len(result.Decisions), len(txns))))
		}
		return categorizeErr
	}

	if err := cli.RenderTransactions(a.out, result.Transactions); err != nil {
		return err
	}
	if err := cli.RenderStats(a.out, result.Stats); err != nil {
		return err
	}
	for _, f := range result.Failures {
		fmt.Fprintln(a.out, cli.FormatWarning(fmt.Sprintf("Transaction %d %q defaulted to %s: %v", f.Index+1, f.Details, model.CategoryMiscellaneous, f.Err)))
	}

	if opts.outPath != "" {
		if err := export.WriteFile(a.fs, opts.outPath, result.Transactions, &result.Stats); err != nil {
			return persistError(opts.outPath, err)
		}
		fmt.Fprintln(a.out, cli.FormatSuccess("Wrote "+opts.outPath))
	}

	var (
		history *storage.SQLiteStorage
		runID   string
	)
	if opts.saveHistory {
		history, err = a.openHistory(ctx)
		if err != nil {
			return persistError(a.cfg.DatabasePath, err)
		}
		defer func() {
			if closeErr := history.Close(); closeErr != nil {
				a.logger.Warn("failed to close history database", "error", closeErr)
			}
		}()

		runID, err = history.SaveRun(ctx, &model.Run{
			Account:      profile.Kind.Tag(),
			Source:       opts.path,
			Transactions: result.Transactions,
			Decisions:    result.Decisions,
			Proposed:     result.Proposed,
			Stats:        result.Stats,
		})
		if err != nil {
			return persistError(a.cfg.DatabasePath, fmt.Errorf("failed to record run: %w", err))
		}
	}

	selected, err := a.selectPatterns(ctx, opts.approveMode, result.Proposed)
	if err != nil {
		return err
	}
	approved, err := approval.Select(result.Proposed, selected)
	if err != nil {
		return err
	}

	if _, err := approval.Approve(ctx, store, result.Proposed, selected); err != nil {
		if errors.Is(err, common.ErrApprovalNoOp) {
			if len(result.Proposed) > 0 {
				fmt.Fprintln(a.out, cli.FormatInfo("No patterns saved"))
			}
			return nil
		}
		return err
	}
	fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf("Saved %d learned pattern(s) to %s", len(approved), a.cfg.RulesPath)))

	if history != nil {
		if err := history.MarkApproved(ctx, runID, approved); err != nil {
			return persistError(a.cfg.DatabasePath, fmt.Errorf("failed to record approval: %w", err))
		}
	}
	return nil
}

func (a *app) selectPatterns(ctx context.Context, mode string, proposed []model.ProposedPattern) ([]bool, error) {
	switch strings.ToLower(mode) {
	case approveAll:
		return approval.All(proposed), nil
	case approveTUI:
		return tui.SelectPatterns(ctx, proposed, tui.Options{Input: a.in, Output: a.out, AltScreen: true})
	case approvePrompt:
		return cli.NewPrompter(a.in, a.out).SelectPatterns(ctx, proposed)
	default:
		return approval.None(proposed), nil
	}
}

func (a *app) newClassifier() (*llm.Classifier, error) {
	cfg := llm.Config{
		Provider:    a.cfg.LLM.Provider,
		APIKey:      a.cfg.LLM.APIKey,
		Model:       a.cfg.LLM.Model,
		BaseURL:     a.cfg.LLM.BaseURL,
		MaxRetries:  a.cfg.LLM.MaxRetries,
		RetryDelay:  a.cfg.LLM.RetryDelay,
		CacheTTL:    a.cfg.LLM.CacheTTL,
		Timeout:     a.cfg.LLM.Timeout,
		RateLimit:   a.cfg.LLM.RateLimit,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
	}
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return llm.NewClassifier(client, cfg, a.logger), nil
}

func (a *app) openHistory(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}
