package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ufo-models/ufometa/internal/cli/ui"
	"github.com/ufo-models/ufometa/internal/pipeline"
)

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model-list-file>",
		Short: "Check every listed model package",
		Long: `Run the validation checks on every package named in the list file.

A package is a directory holding metadata.json and the model, either as an
archive (.zip, .tar, .tgz, .tar.gz) or as a decompressed directory. Each
check prints PASSED or FAILED; valid packages also print their counts and
particle classification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, app, args[0])
		},
	}
}

func runValidate(cmd *cobra.Command, app *App, list string) error {
	packages, err := pipeline.ReadList(list)
	if err != nil {
		return err
	}

	out := app.human(cmd)
	r, err := app.pipeline(needs{}, ui.NewCheckPrinter(out, app.noColor), nil)
	if err != nil {
		return err
	}
	defer r.Close()

	report := r.Batch(withContext(cmd), packages, func(ctx context.Context, pkg string) ([]string, error) {
		ui.Header(out, pkg, app.noColor)
		v, err := r.Validate(ctx, pkg)
		if err != nil {
			app.packageFailed(cmd, pkg, err, "The package is not valid.")
			return nil, err
		}
		printDerived(out, v.Derived, app.noColor)
		printWarnings(out, v.Warnings(), app.noColor)
		ui.WriteSuccess(out, pkg+" is valid", app.noColor)
		return v.Warnings(), nil
	})
	return app.finish(cmd, report)
}
