package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/internal/metrics"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/lsp"
	"github.com/l3aro/pyassist/pkg/watch"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdin/stdout",
	Long: `Speaks the Language Server Protocol on stdin/stdout. Project directories
are watched so that removed or renamed modules leave the module info cache.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			cfg.MetricsAddr = addr
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		if noWatch, _ := cmd.Flags().GetBool("no-watch"); !noWatch {
			excludes := append(append([]string{}, scanner.DefaultExcludes...), cfg.Exclude...)
			w, err := watch.New(watch.DefaultDebounce, excludes, watch.Evictor(a.cache, a.introspector, logger), logger)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Watch(a.watchDirs()); err != nil {
				return err
			}
		}

		if cfg.MetricsAddr != "" {
			ms := metrics.NewServer(cfg.MetricsAddr, logger)
			if err := ms.Start(); err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ms.Stop(ctx)
			}()
		}

		// Built up front so the first completion does not pay for it.
		a.system.Build()

		srv := lsp.NewServer(lsp.Options{Resolver: a.resolver, Workspace: a.workspace, Logger: logger})
		logger.Info("language server starting", "project_root", cfg.ProjectRoot, "import_dirs", len(cfg.ImportDirs))
		err = lsp.Serve(cmd.Context(), os.Stdin, os.Stdout, srv)
		logger.Info("language server stopped", "cached_modules", a.cache.Len(), "introspected", a.introspector.Len())
		return err
	},
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics_addr)")
	serveCmd.Flags().Bool("no-watch", false, "Do not watch project directories")
	RootCmd.AddCommand(serveCmd)
}
