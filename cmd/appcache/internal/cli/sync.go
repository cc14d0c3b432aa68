package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/manifest"
)

// errStale makes 'sync --check' exit non-zero.
var errStale = errors.New("manifest is out of date")

var syncFlags struct {
	check   bool
	dryRun  bool
	verbose bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Regenerate the manifest's cached file section",
	Long: `Rescans the workspace and rewrites the section of the manifest below the
AUTOGENERATED line: the preserved #! directives, the file totals, the
content signature and the CACHE: list.

A workspace without a manifest, or a manifest without the AUTOGENERATED
line, is left untouched. Run 'appcache offline' to create one.

--dry-run prints a unified diff of what would change. --check does the
same and exits with status 1 when the manifest is out of date, for CI.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFlags.check, "check", false,
		"Exit with status 1 if the manifest is out of date")
	syncCmd.Flags().BoolVar(&syncFlags.dryRun, "dry-run", false,
		"Show the diff without writing")
	syncCmd.Flags().BoolVar(&syncFlags.verbose, "verbose", false,
		"Show the signature and directive warnings")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if syncFlags.check || syncFlags.dryRun {
		s, _, _, err := ws.synchronizer(ctx)
		if err != nil {
			return err
		}
		plan, err := s.Generate(ctx)
		if err != nil {
			return err
		}
		switch {
		case plan.Status == manifest.StatusNoManifest:
			fmt.Fprintf(out, "%s does not exist\n", plan.Path)
			return nil
		case plan.Status == manifest.StatusNoMarker:
			fmt.Fprintf(out, "%s has no AUTOGENERATED section\n", plan.Path)
			return nil
		case !plan.Changed():
			fmt.Fprintf(out, "%s is up to date\n", plan.Path)
			return nil
		}
		diff, err := plan.Diff()
		if err != nil {
			return err
		}
		fmt.Fprint(out, diff)
		if syncFlags.check {
			return errStale
		}
		return nil
	}

	res, err := ws.synchronize(ctx, true)
	if err != nil {
		return err
	}
	printSyncResult(out, res, syncFlags.verbose)
	return nil
}

func printSyncResult(w io.Writer, res *manifest.Result, verbose bool) {
	if verbose {
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "warning: %v\n", warn)
		}
	}

	switch res.Status {
	case manifest.StatusNoManifest:
		fmt.Fprintf(w, "%s does not exist (run 'appcache offline' to create it)\n", res.Path)
	case manifest.StatusNoMarker:
		fmt.Fprintf(w, "%s has no AUTOGENERATED section\n", res.Path)
	case manifest.StatusWritten:
		state := "updated"
		if !res.Changed {
			state = "unchanged"
		}
		fmt.Fprintf(w, "%s %s: %s files (%s bytes)\n",
			res.Path, state, humanize.Comma(int64(res.Files)), humanize.Comma(res.TotalBytes))
		if verbose {
			fmt.Fprintf(w, "signature: %s\n", res.Signature)
		}
	}
}
