package main

import (
	"errors"

	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/store"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagScenario string
	flagCleanup  bool
	flagLimit    int
	flagRunID    int64
)

var rootCmd = &cobra.Command{
	Use:   "dqtprobe",
	Short: "Probe a RabbitMQ broker for the default-queue-type redeclare defect",
	Long: `dqtprobe reproduces a broker defect where a vhost whose
default_queue_type metadata holds the literal string "undefined" makes
redeclaration of existing queues fail with PRECONDITION_FAILED (406).

Without a subcommand it runs the built-in reproduction scenario.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScenarioCmd(cmd)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the built-in scenario, or one loaded from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScenarioCmd(cmd)
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: `Rewrite every vhost's literal "undefined" default_queue_type to "classic"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		cfg.SetupLogger()

		admin, err := newAdminClient(cfg)
		if err != nil {
			return err
		}
		_, err = executeFix(cmd.Context(), admin)
		return err
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs, or the steps of one run with --run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		cfg.SetupLogger()

		s, err := store.Open(cfg.Store.Config)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if flagRunID > 0 {
			return printSteps(cmd.OutOrStdout(), s, flagRunID)
		}
		return printRuns(cmd.OutOrStdout(), s, flagLimit)
	},
}

// runScenarioCmd is the shared body of the root and run commands.
func runScenarioCmd(cmd *cobra.Command) error {
	cfg, err := LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	cfg.SetupLogger()

	if cmd.Flags().Changed("cleanup") {
		cfg.Scenario.Cleanup = flagCleanup
	}

	res, err := executeRun(cmd.Context(), cfg, flagScenario)
	if err != nil {
		return err
	}
	if res.ExitCode() != 0 {
		return errScenarioFailed
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")

	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVarP(&flagScenario, "scenario", "s", "", "path to a scenario YAML file (default: built-in reproduction)")
		c.Flags().BoolVar(&flagCleanup, "cleanup", false, "delete the test vhost after the run")
	}

	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of runs to list")
	historyCmd.Flags().Int64Var(&flagRunID, "run", 0, "show the step results of this run id")

	rootCmd.AddCommand(runCmd, fixCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errScenarioFailed) {
			common.GetLogger().Error("scenario did not pass")
			exitHandler.Exit(1)
			return
		}
		exitHandler.LogFatalError(err, "command failed")
		return
	}
	exitHandler.Exit(0)
}
