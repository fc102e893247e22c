package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/internal/config"
	"github.com/l3aro/pyassist/internal/log"
)

var (
	configFile string
	logLevel   string
	logJSON    bool

	logger log.Logger = log.Default()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pyassist",
	Short: "pyassist - Python code completion and navigation",
	Long: `pyassist answers code-assist queries about Python projects: completion
lists, calltips, definitions and occurrences. It works from brief module
information parsed with tree-sitter and, when available, a Python interpreter.

Commands:
  complete     Completion list at a position
  calltip      Calltip and docstring of the callable at a position
  definition   Definition of the name at a position
  occurrences  Occurrences of the name at a position
  modules      Modules importable from a file
  info         Brief module information of a file
  snapshot     Record an introspection snapshot of system modules
  serve        Run the language server on stdin/stdout
  init         Create a configuration file interactively
  doctor       Check configuration and interpreter

Use "pyassist [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = log.New(log.LoggerConfig{Level: level, JSONOutput: logJSON})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads --config when given, the layered configuration otherwise.
// A log level in the configuration applies unless --log-level was set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if !cmd.Flags().Changed("log-level") {
		level := cfg.LogLevel
		if cfg.Verbose {
			level = "debug"
		}
		if l, err := log.ParseLevel(level); err == nil {
			logger.SetLevel(l)
		}
	}
	return cfg, nil
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML or TOML)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
}
