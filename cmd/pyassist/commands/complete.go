package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/complete"
)

// CompleteOutput represents the output structure for JSON
type CompleteOutput struct {
	Path        string   `json:"path"`
	Object      string   `json:"object"`
	Prefix      string   `json:"prefix"`
	Names       []string `json:"names"`
	ModuleNames bool     `json:"module_names"`
}

// completeCmd represents the complete command
var completeCmd = &cobra.Command{
	Use:   "complete FILE",
	Short: "Completion list at a position",
	Long: `Prints the names that complete the word at the cursor. The list is not
filtered by the typed prefix; with --json the prefix and the expression before
the last dot are reported alongside.`,
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

		info, err := briefparser.New().ParseMemory(buf.Text())
		if err != nil {
			logger.Debug("cannot parse buffer", "path", path, "error", err)
			info = nil
		}
		cc := complete.NewContext(buf, info)
		names, isModules := a.resolver.CompletionList(cmd.Context(), cc, buf, path, info)

		if jsonFlag(cmd) {
			if names == nil {
				names = []string{}
			}
			return printJSON(cmd, CompleteOutput{
				Path:        path,
				Object:      cc.Object,
				Prefix:      cc.Prefix,
				Names:       names,
				ModuleNames: isModules,
			})
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	addPositionFlags(completeCmd)
	RootCmd.AddCommand(completeCmd)
}
