package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/opticorr/accelerator"
	"github.com/katalvlaran/opticorr/config"
	"github.com/katalvlaran/opticorr/logging"
	"github.com/katalvlaran/opticorr/store"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgPath string
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "opticorr",
		Short:         "Iterative global optics correction",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Logging.Level = "debug"
			}
			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "opticorr.yaml", "configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCorrectCmd(a),
		newResponseCmd(a),
		newScriptCmd(a),
		newRunsCmd(a),
		newVersionCmd(),
	)

	return root
}

func (a *app) accelerator() (accelerator.Accelerator, error) {
	return accelerator.New(a.cfg.Accelerator.Name, a.cfg.AcceleratorOptions())
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Output.DBPath, store.WithLogger(a.logger))
}

// withStore opens the archive for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			a.logger.Warn("closing store", zap.Error(cerr))
		}
	}()

	return fn(ctx, st)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "opticorr %s\n", version)
			return err
		},
	}
}
