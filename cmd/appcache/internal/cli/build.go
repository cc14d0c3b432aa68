package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/bundle"
)

var buildFlags struct {
	noMinify bool
	verbose  bool
}

var buildCmd = &cobra.Command{
	Use:   "build [base-dir...]",
	Short: "Combine and minify the scripts of each base directory",
	Long: `Concatenates the scripts of each configured base directory (build.base_dirs)
into combined.js and, unless disabled, sends the result to the minifier
service to produce combined-min.js.

Script order comes from <base-dir>/includes.yaml when present, otherwise
all *.js files are combined in sorted order.

Minifier errors are reported as file:line:col diagnostics and do not stop
the minified file from being written. Failing to reach the minifier is
fatal; the combined file is kept.

Pass base directories as arguments to build only those.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildFlags.noMinify, "no-minify", false,
		"Only write the combined file")
	buildCmd.Flags().BoolVar(&buildFlags.verbose, "verbose", false,
		"Also show minifier warnings and statistics")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	baseDirs := ws.cfg.Build.BaseDirs
	if len(args) > 0 {
		baseDirs = args
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	asm := ws.assembler(buildFlags.noMinify)
	for _, dir := range baseDirs {
		res, err := ws.build(ctx, asm, dir)
		if res != nil {
			printBuildResult(out, ws, res, buildFlags.verbose)
		}
		if err != nil {
			return fmt.Errorf("build %s: %w", dir, err)
		}
	}
	return nil
}

func printBuildResult(w io.Writer, ws *workspace, res *bundle.Result, verbose bool) {
	fmt.Fprintf(w, "Combining %d files into %s.\n", res.Files, ws.rel(res.CombinedPath))
	if res.MinifiedPath == "" {
		return
	}

	var errs, warns []bundle.Diagnostic
	for _, d := range res.Diagnostics {
		d.File = ws.rel(d.File)
		if d.Severity == bundle.SeverityError {
			errs = append(errs, d)
		} else {
			warns = append(warns, d)
		}
	}
	printDiagnostics(w, "errors", errs)
	if verbose {
		printDiagnostics(w, "warnings", warns)
	}

	fmt.Fprintf(w, "Minified into %s.\n", ws.rel(res.MinifiedPath))
	if verbose && res.Stats != nil {
		fmt.Fprintf(w, "  %d -> %d bytes (gzip %d -> %d)\n",
			res.Stats.OriginalSize, res.Stats.CompressedSize,
			res.Stats.OriginalGzipSize, res.Stats.CompressedGzipSize)
	}
}

func printDiagnostics(w io.Writer, kind string, diags []bundle.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "Minifier %s:\n", kind)
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
