package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/internal/config"
	"github.com/l3aro/pyassist/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and interpreter",
	Long: `Checks the configuration, the configured directories, the Python interpreter
used for introspection and the introspection snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configPath, err := loadConfigWithPath()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		result, err := healthcheck.Check(cmd.Context(), cfg, configPath, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(result)

		if result.HasErrors() {
			return fmt.Errorf("health check failed: one or more checks reported errors")
		}

		return nil
	},
}

// loadConfigWithPath loads --config, else the project config, else the
// global one.
func loadConfigWithPath() (*config.Config, string, error) {
	if configFile != "" {
		cfg, err := config.LoadFromFile(configFile)
		return cfg, configFile, err
	}

	projectConfigPath := config.ProjectConfigPath()
	globalConfigPath := config.GlobalConfigPath()

	var effectivePath string
	if fileExists(projectConfigPath) {
		effectivePath = projectConfigPath
	} else if fileExists(globalConfigPath) {
		effectivePath = globalConfigPath
	} else {
		return nil, "", fmt.Errorf("no configuration found\n"+
			"Checked paths:\n"+
			"  - %s (project)\n"+
			"  - %s (global)\n"+
			"Run 'pyassist init' to create a configuration file",
			projectConfigPath, globalConfigPath)
	}

	cfg, err := config.LoadFromFile(effectivePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", effectivePath, err)
	}

	return cfg, effectivePath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(result *healthcheck.HealthCheckResult) {
	if abs, err := filepath.Abs(result.EffectivePath); err == nil {
		fmt.Printf("Using config: %s (%s)\n\n", abs, result.EffectiveScope)
	}

	fmt.Println("Project:")
	if result.ProjectRoot.Status == healthcheck.StatusDisabled {
		fmt.Println("  Root: not set")
	} else {
		fmt.Printf("  Root: %s\n", result.ProjectRoot.Path)
		printStatus(result.ProjectRoot.Status, result.ProjectRoot.Error)
	}
	for _, dir := range result.ImportDirs {
		fmt.Printf("  Import dir: %s\n", dir.Path)
		printStatus(dir.Status, dir.Error)
	}

	fmt.Println("\nInterpreter:")
	if result.Interpreter.Status == healthcheck.StatusDisabled {
		fmt.Println("  Python: not set, introspection uses the snapshot only")
	} else {
		fmt.Printf("  Python: %s\n", result.Interpreter.Python)
		if result.Interpreter.Version != "" {
			fmt.Printf("  Version: %s\n", result.Interpreter.Version)
			fmt.Printf("  sys.path entries: %d\n", result.Interpreter.Paths)
			fmt.Printf("  Built-in modules: %d\n", result.Interpreter.Builtins)
		}
		printStatus(result.Interpreter.Status, result.Interpreter.Error)
	}

	fmt.Println("\nSnapshot:")
	if result.Snapshot.Path == "" {
		fmt.Println("  Path: built-in")
	} else {
		fmt.Printf("  Path: %s\n", result.Snapshot.Path)
	}
	if result.Snapshot.Status != healthcheck.StatusError {
		fmt.Printf("  Modules: %d (Python %s)\n", result.Snapshot.Modules, result.Snapshot.Version)
	}
	printStatus(result.Snapshot.Status, result.Snapshot.Error)
}

func printStatus(status string, errMsg string) {
	icon := formatStatusIcon(status)
	fmt.Printf("  Status: %s %s\n", icon, status)
	if errMsg != "" && status == healthcheck.StatusError {
		fmt.Printf("  Error: %s\n", errMsg)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady, healthcheck.StatusBuiltin:
		return "✓"
	case healthcheck.StatusDisabled:
		return "-"
	case healthcheck.StatusMissing, healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
