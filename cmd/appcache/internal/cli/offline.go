package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/manifest"
	"github.com/albertocavalcante/appcache/pkg/util"
)

var offlineFlags struct {
	force   bool
	verbose bool
	dryRun  bool
}

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Create the offline cache manifest and fill in its file list",
	Long: `Writes a boilerplate cache manifest (manifest.path, default app.manifest)
listing the static assets from manifest.static_assets, then generates the
cached file section from the files in the workspace.

An existing manifest is kept unless --force is given; its generated section
is refreshed either way.

Text above the AUTOGENERATED line is yours to edit. Below it, only #!
directives survive regeneration, for example:

  #! EXCLUDE: /tmp, /scratch`,
	RunE: runOffline,
}

func init() {
	offlineCmd.Flags().BoolVarP(&offlineFlags.force, "force", "f", false,
		"Overwrite an existing manifest with the boilerplate")
	offlineCmd.Flags().BoolVar(&offlineFlags.verbose, "verbose", false,
		"Print the boilerplate and cached file details")
	offlineCmd.Flags().BoolVar(&offlineFlags.dryRun, "dry-run", false,
		"Show the resulting manifest without writing anything")

	rootCmd.AddCommand(offlineCmd)
}

func runOffline(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	opts := manifest.OptionsFromConfig(ws.root, ws.cfg)
	path := opts.File()
	exists := util.FileExists(path)

	if offlineFlags.dryRun {
		return offlineDryRun(cmd, ws, path, exists)
	}

	boot, err := manifest.Bootstrap(path, offlineFlags.force, ws.cfg.Manifest.StaticAssets)
	if err != nil {
		return err
	}
	if boot.AlreadyExists {
		fmt.Fprintf(out, "%s already exists (use -f to overwrite).\n", opts.ManifestPath)
	}
	if boot.Created {
		fmt.Fprintf(out, "Creating file %s.\n", opts.ManifestPath)
		if offlineFlags.verbose {
			fmt.Fprintln(out, boot.Content)
		}
	}

	res, err := ws.synchronize(ctx, true)
	if err != nil {
		return err
	}
	printSyncResult(out, res, offlineFlags.verbose)
	return nil
}

func offlineDryRun(cmd *cobra.Command, ws *workspace, path string, exists bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var content []byte
	if exists && !offlineFlags.force {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = data
	} else {
		content = []byte(manifest.Boilerplate(ws.cfg.Manifest.StaticAssets))
	}

	s, _, _, err := ws.synchronizer(ctx)
	if err != nil {
		return err
	}
	plan := s.PlanContent(content)
	if plan.Status != manifest.StatusGenerated {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has no AUTOGENERATED section\n", plan.Path)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(plan.New)
	return err
}
