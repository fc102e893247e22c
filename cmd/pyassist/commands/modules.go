package commands

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/pkg/types"
)

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules [file]",
	Short: "Modules importable from a file",
	Long: `Lists the module names importable from the given file: the project's
import directories, its base directory and the interpreter's sys.path. With
--from, lists the names importable from one module instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		fileName := ""
		if len(args) > 0 {
			if fileName, err = filepath.Abs(args[0]); err != nil {
				return fmt.Errorf("getting absolute path: %w", err)
			}
		}

		from, _ := cmd.Flags().GetString("from")
		systemOnly, _ := cmd.Flags().GetBool("system")

		var names []string
		switch {
		case from != "":
			names = a.imports.ImportedNames(cmd.Context(), from, fileName).Sorted()
		case systemOnly:
			for name := range a.system.Modules() {
				names = append(names, name)
			}
			sort.Strings(names)
		default:
			names = a.imports.ModuleNames(fileName)
		}

		if jsonFlag(cmd) {
			if names == nil {
				names = []string{}
			}
			return printJSON(cmd, names)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Brief module information of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		info, err := a.cache.Get(args[0])
		if err != nil {
			return fmt.Errorf("parsing module: %w", err)
		}
		if jsonFlag(cmd) {
			return printJSON(cmd, info)
		}
		printModuleInfo(cmd, info)
		return nil
	},
}

func printModuleInfo(cmd *cobra.Command, info *types.ModuleInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== %s ===\n", info.Path)

	if len(info.Imports) > 0 {
		fmt.Fprintln(out, "\nImports:")
		for _, imp := range info.Imports {
			if imp.IsFrom {
				names := make([]string, 0, len(imp.Names))
				for _, n := range imp.Names {
					names = append(names, n.Name)
				}
				fmt.Fprintf(out, "  from %s import %s\n", imp.Module, joinStrings(names))
			} else {
				fmt.Fprintf(out, "  import %s\n", imp.Module)
			}
		}
	}

	if len(info.Globals) > 0 {
		fmt.Fprintln(out, "\nGlobals:")
		for _, g := range info.Globals {
			fmt.Fprintf(out, "  %s\n", g.Name)
		}
	}

	if len(info.Classes) > 0 {
		fmt.Fprintln(out, "\nClasses:")
		for _, cls := range info.Classes {
			fmt.Fprintf(out, "  class %s", cls.Name)
			if len(cls.Bases) > 0 {
				fmt.Fprintf(out, "(%s)", joinStrings(cls.Bases))
			}
			fmt.Fprintln(out)
			for _, method := range cls.Functions {
				fmt.Fprintf(out, "    def %s(%s)\n", method.Name, method.Params)
			}
		}
	}

	if len(info.Functions) > 0 {
		fmt.Fprintln(out, "\nFunctions:")
		for _, fn := range info.Functions {
			asyncPrefix := ""
			if fn.IsAsync {
				asyncPrefix = "async "
			}
			fmt.Fprintf(out, "  def %s%s(%s)\n", asyncPrefix, fn.Name, fn.Params)
		}
	}

	for _, d := range info.Errors {
		fmt.Fprintf(out, "error: %d:%d: %s\n", d.Line, d.Column, d.Message)
	}
	for _, d := range info.Warnings {
		fmt.Fprintf(out, "warning: %d:%d: %s\n", d.Line, d.Column, d.Message)
	}
}

func joinStrings(s []string) string {
	if len(s) == 0 {
		return ""
	}
	result := s[0]
	for i := 1; i < len(s); i++ {
		result += ", " + s[i]
	}
	return result
}

func init() {
	modulesCmd.Flags().String("from", "", "List the names importable from this module")
	modulesCmd.Flags().Bool("system", false, "List system modules only")
	modulesCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	infoCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	RootCmd.AddCommand(modulesCmd)
	RootCmd.AddCommand(infoCmd)
}
