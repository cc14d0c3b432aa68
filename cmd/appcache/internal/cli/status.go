package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/listing"
	"github.com/albertocavalcante/appcache/cmd/appcache/internal/manifest"
)

var statusFlags struct {
	verbose bool
	json    bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show files changed since the last manifest sync",
	Long: `Compares the workspace against the file listing recorded by the last
successful 'appcache sync' or 'appcache offline', and reports whether the
manifest's generated section is out of date.

The --verbose flag shows individual file changes (new, modified, deleted).
The --json flag outputs the result as JSON for scripting.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.verbose, "verbose", false,
		"Show individual file changes")
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for appcache status.
type StatusOutput struct {
	Manifest      string   `json:"manifest"`
	ManifestState string   `json:"manifest_state"`
	Stale         bool     `json:"stale"`
	TrackedFiles  int      `json:"tracked_files"`
	NewFiles      []string `json:"new_files,omitempty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
	DeletedFiles  []string `json:"deleted_files,omitempty"`
	AffectedDirs  []string `json:"affected_dirs,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	sc, err := ws.scanner()
	if err != nil {
		return err
	}
	tracker := listing.NewTracker(sc)

	// One scan serves both reports: unchanged files keep their stored hash.
	idx, cs, err := tracker.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to detect changes: %w", err)
	}
	s := manifest.NewSynchronizer(manifest.OptionsFromConfig(ws.root, ws.cfg), listing.New(ws.root, sc.Algorithm(), idx))
	plan, err := s.Generate(ctx)
	if err != nil {
		return err
	}

	output := StatusOutput{
		Manifest:      plan.Path,
		ManifestState: manifestState(plan),
		Stale:         plan.Changed(),
	}

	if !tracker.HasState() {
		output.Error = "no state found"
		if statusFlags.json {
			return outputJSON(out, output)
		}
		printManifestState(out, output)
		fmt.Fprintln(out, "No sync recorded yet. Run 'appcache sync' to create initial state.")
		return nil
	}

	output.TrackedFiles = tracker.TrackedFileCount()
	output.NewFiles = cs.Added
	output.ModifiedFiles = cs.Modified
	output.DeletedFiles = cs.Deleted
	output.AffectedDirs = cs.AffectedDirs()

	if statusFlags.json {
		return outputJSON(out, output)
	}

	printManifestState(out, output)
	if cs.IsEmpty() {
		fmt.Fprintf(out, "No changes since last sync (%d files tracked)\n", output.TrackedFiles)
		return nil
	}

	fmt.Fprintf(out, "%d files changed since last sync\n", cs.TotalChanges())
	if statusFlags.verbose {
		printFiles(out, "New files", "+", cs.Added)
		printFiles(out, "Modified files", "~", cs.Modified)
		printFiles(out, "Deleted files", "-", cs.Deleted)
		printFiles(out, "Affected directories", "*", output.AffectedDirs)
	}
	return nil
}

func manifestState(plan *manifest.Plan) string {
	switch {
	case plan.Status == manifest.StatusNoManifest:
		return "missing"
	case plan.Status == manifest.StatusNoMarker:
		return "no-autogenerated-section"
	case plan.Changed():
		return "stale"
	default:
		return "up-to-date"
	}
}

func printManifestState(w io.Writer, o StatusOutput) {
	switch o.ManifestState {
	case "missing":
		fmt.Fprintf(w, "%s: missing (run 'appcache offline')\n", o.Manifest)
	case "stale":
		fmt.Fprintf(w, "%s: out of date (run 'appcache sync')\n", o.Manifest)
	default:
		fmt.Fprintf(w, "%s: %s\n", o.Manifest, o.ManifestState)
	}
}

func printFiles(w io.Writer, title, mark string, files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(files))
	for _, f := range files {
		fmt.Fprintf(w, "  %s %s\n", mark, f)
	}
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
