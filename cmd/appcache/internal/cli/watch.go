package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/watch"
	"github.com/albertocavalcante/appcache/internal/log"
)

var watchFlags struct {
	debounce int
	verbose  bool
	json     bool
	noColor  bool
	noMinify bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild bundles and resync the manifest when files change",
	Long: `Watches the workspace and, after a quiet period, rebuilds the bundle of
every base directory whose scripts changed and then resynchronizes the
manifest.

Example output:

  $ appcache watch

  appcache: watching 214 files in /path/to/app
  appcache: bundles: js, rest/js
  appcache: ready

  [14:32:15] building js...
  [14:32:16] ✓ js bundled (12 files)
  [14:32:16] ✓ app.manifest updated (87 cached files)

Press Ctrl+C to stop watching.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 500,
		"Debounce window in milliseconds")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")
	watchCmd.Flags().BoolVar(&watchFlags.noMinify, "no-minify", false,
		"Skip the minifier when rebuilding")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	sc, err := ws.scanner()
	if err != nil {
		return err
	}

	asm := ws.assembler(watchFlags.noMinify)
	actions := watch.Actions{
		Build: func(ctx context.Context, baseDir string) (int, []string, error) {
			res, err := ws.build(ctx, asm, baseDir)
			if err != nil {
				return 0, nil, err
			}
			diags := make([]string, 0, len(res.Diagnostics))
			for _, d := range res.Errors() {
				d.File = ws.rel(d.File)
				diags = append(diags, d.String())
			}
			return res.Files, diags, nil
		},
		Sync: func(ctx context.Context) (int, bool, error) {
			res, err := ws.synchronize(ctx, false)
			if err != nil {
				return 0, false, err
			}
			return res.Files, res.Changed, nil
		},
	}

	w, err := watch.New(watch.Config{
		Root:     ws.root,
		BaseDirs: ws.cfg.Build.BaseDirs,
		Outputs:  []string{ws.cfg.Build.CombinedName, ws.cfg.Build.MinifiedName},
		Manifest: ws.cfg.Manifest.Path,
		Scanner:  sc,
		Debounce: time.Duration(watchFlags.debounce) * time.Millisecond,
		Verbose:  watchFlags.verbose || log.Verbosity() >= log.VerbosityDebug,
		NoColor:  watchFlags.noColor,
		JSON:     watchFlags.json || log.Format() == log.FormatJSON,
		Writer:   cmd.OutOrStdout(),
	}, actions)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	return w.Run(ctx)
}
