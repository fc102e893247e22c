package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/internal/config"
	"github.com/l3aro/pyassist/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pyassist configuration interactively",
	Long: `Guides you through setting up pyassist configuration step by step.
Creates a config file with the project layout and the interpreter used for
introspection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

func runInit(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Project layout ===
	projectRoot := "."
	importDirs := ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project root").
				Description("Base directory of the project; its modules are always importable").
				Placeholder(".").
				Value(&projectRoot),
			huh.NewInput().
				Title("Additional import directories (optional)").
				Description("Comma separated, relative to the project root").
				Placeholder("src, lib").
				Value(&importDirs),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Interpreter ===
	python := cfg.Python
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Python interpreter used for introspection").
				Description("Leave empty to rely on the built-in snapshot only").
				Placeholder(cfg.Python).
				Value(&python),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.pyassist/config.yaml)", "project"),
					huh.NewOption("Global (~/.pyassist/config.yaml)", "global"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigPath()
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	root, err := filepath.Abs(strings.TrimSpace(projectRoot))
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}
	cfg.ProjectRoot = root
	cfg.ImportDirs = splitDirs(root, importDirs)
	cfg.Python = strings.TrimSpace(python)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Project root: %s\n", cfg.ProjectRoot)
	for _, dir := range cfg.ImportDirs {
		fmt.Printf("Import dir: %s\n", dir)
	}
	if cfg.Python == "" {
		fmt.Println("Interpreter: none (snapshot only)")
	} else {
		fmt.Printf("Interpreter: %s\n", cfg.Python)
	}
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// === SECTION 4: Health Check ===
	fmt.Println("\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(cmd.Context(), loadedCfg, configPath, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("\nConfig Scope: %s\n", result.SavedScope)
	displayDoctorResult(result)

	fmt.Println("\n=== Initialization Complete ===")
	return nil
}

// splitDirs parses a comma separated directory list, resolving relative
// entries against root.
func splitDirs(root, list string) []string {
	var dirs []string
	for _, dir := range strings.Split(list, ",") {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

func init() {
	RootCmd.AddCommand(initCmd)
}
