package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-statements/internal/cli"
	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/config"
)

var version = "dev"

// app carries what every command needs. Tests build their own with a fresh
// viper instance and in-memory writers.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	fs      afero.Fs
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
	cfgFile string
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		v:      viper.New(),
		fs:     afero.NewOsFs(),
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "spice",
		Short: "🌶️  Bank statement categorization",
		Long: `spice reads bank statements, categorizes every transaction with your
rule file and a language model, and learns new merchant patterns as you
approve them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/spice/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("rules", "", "rule file (.json or .yaml)")
	flags.String("database", "", "run history database")

	_ = a.v.BindPFlag(config.KeyLoggingLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLoggingFormat, flags.Lookup("log-format"))
	_ = a.v.BindPFlag(config.KeyRulesPath, flags.Lookup("rules"))
	_ = a.v.BindPFlag(config.KeyDatabasePath, flags.Lookup("database"))

	root.AddCommand(parseCmd(a))
	root.AddCommand(categorizeCmd(a))
	root.AddCommand(rulesCmd(a))
	root.AddCommand(historyCmd(a))
	root.AddCommand(versionCmd(a))
	return root
}

func main() {
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx := interrupts.HandleInterrupts(context.Background())

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		if !interrupts.WasInterrupted() {
			fmt.Fprintln(os.Stderr, cli.FormatError(describeError(err)))
		}
		os.Exit(1)
	}
}

// reportNoTransactions prints the empty-statement notice when err is
// common.ErrNoTransactions. An empty statement is not a failure, so callers
// return nil and the process exits 0.
func (a *app) reportNoTransactions(err error, path string) bool {
	if !errors.Is(err, common.ErrNoTransactions) {
		return false
	}
	fmt.Fprintln(a.out, cli.FormatInfo("No transactions found in "+path))
	return true
}

// persistError tags a failed write so it is reported as the persist stage.
func persistError(target string, err error) error {
	return &common.PersistError{Target: target, Err: err}
}

// describeError prefixes err with the stage that failed, when known.
func describeError(err error) string {
	stage := common.StageOf(err)
	if stage == common.StageUnknown {
		return err.Error()
	}
	return fmt.Sprintf("%s failed: %v", stage, err)
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnvFiles(filepath.Join(config.Dir(), ".env"), ".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(config.Dir())
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("SPICE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := common.NewLogger(a.errOut, level, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	a.logger = logger
	return nil
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "spice %s\n", version)
		},
	}
}
