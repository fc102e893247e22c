package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/pkg/assist"
)

// CalltipOutput represents the output structure for JSON
type CalltipOutput struct {
	Calltip string `json:"calltip"`
	Doc     string `json:"doc"`
}

// OccurrencesOutput represents the output structure for JSON
type OccurrencesOutput struct {
	Name      string            `json:"name"`
	Locations []assist.Location `json:"locations"`
}

var calltipCmd = &cobra.Command{
	Use:   "calltip FILE",
	Short: "Calltip and docstring of the callable at a position",
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
		path, buf, err := openBuffer(cmd, args[0])
		if err != nil {
			return err
		}

		calltip, doc := a.resolver.CalltipAndDoc(cmd.Context(), path, buf, -1)
		if jsonFlag(cmd) {
			return printJSON(cmd, CalltipOutput{Calltip: calltip, Doc: doc})
		}
		if calltip == "" {
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), calltip)
		if doc != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", doc)
		}
		return nil
	},
}

var definitionCmd = &cobra.Command{
	Use:   "definition FILE",
	Short: "Definition of the name at a position",
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
		path, buf, err := openBuffer(cmd, args[0])
		if err != nil {
			return err
		}

		loc := a.resolver.DefinitionLocation(cmd.Context(), path, buf)
		if jsonFlag(cmd) {
			return printJSON(cmd, loc)
		}
		if loc == nil {
			return fmt.Errorf("no definition found")
		}
		printLocation(cmd, *loc)
		return nil
	},
}

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences FILE",
	Short: "Occurrences of the name at a position",
	Long: `Lists every occurrence of the name at the cursor in the project. With
--stdin the piped text temporarily replaces the file on disk while searching.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		path, buf, err := openBuffer(cmd, args[0])
		if err != nil {
			return err
		}

		name, locations, err := a.resolver.Occurrences(cmd.Context(), path, buf, true)
		if err != nil {
			return fmt.Errorf("finding occurrences: %w", err)
		}
		if jsonFlag(cmd) {
			if locations == nil {
				locations = []assist.Location{}
			}
			return printJSON(cmd, OccurrencesOutput{Name: name, Locations: locations})
		}
		for _, loc := range locations {
			printLocation(cmd, loc)
		}
		return nil
	},
}

func printLocation(cmd *cobra.Command, loc assist.Location) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d\n", loc.Path, loc.Line, loc.Column)
}

func init() {
	for _, cmd := range []*cobra.Command{calltipCmd, definitionCmd, occurrencesCmd} {
		addPositionFlags(cmd)
		RootCmd.AddCommand(cmd)
	}
}
