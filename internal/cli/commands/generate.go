package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufo-models/ufometa/internal/cli/ui"
	"github.com/ufo-models/ufometa/internal/pipeline"
)

func newGenerateCommand(app *App) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate <model-list-file>",
		Short: "Write the catalog metadata file of every listed package",
		Long: `Validate every listed package, ask for the model name and version (and
the homepage when metadata.json has none), and write the enriched catalog
record as <archive base name>.json next to the package directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, app, args[0], outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Write metadata files here instead of next to each package")

	return cmd
}

func runGenerate(cmd *cobra.Command, app *App, list, outDir string) error {
	packages, err := pipeline.ReadList(list)
	if err != nil {
		return err
	}
	if err := ensureDir(outDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out := app.human(cmd)
	r, err := app.pipeline(needs{}, ui.NewCheckPrinter(out, app.noColor), func(cfg *pipeline.Config) {
		cfg.OutDir = outDir
	})
	if err != nil {
		return err
	}
	defer r.Close()

	report := r.Batch(withContext(cmd), packages, func(ctx context.Context, pkg string) ([]string, error) {
		ui.Header(out, pkg, app.noColor)
		g, err := r.Generate(ctx, pkg)
		if err != nil {
			app.packageFailed(cmd, pkg, err, "No metadata file was written.")
			return nil, err
		}
		printWarnings(out, g.Warnings(), app.noColor)
		ui.WriteSuccess(out, "Metadata written to "+g.Path, app.noColor)
		return g.Warnings(), nil
	})
	return app.finish(cmd, report)
}
