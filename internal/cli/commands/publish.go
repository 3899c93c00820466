package commands

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufo-models/ufometa/internal/cli/ui"
	"github.com/ufo-models/ufometa/internal/pipeline"
)

func newUploadCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <model-list-file>",
		Short: "Deposit new models on Zenodo and add them to the catalog",
		Long: `Validate every listed package, deposit its model archive on Zenodo with a
reserved DOI, commit the enriched metadata to your fork of the catalog and
open one pull request for the whole batch.

Each deposition is published only after you confirm it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, app, args[0], pipeline.ModeUpload)
		},
	}
}

func newNewVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "new-version <model-list-file>",
		Short: "Deposit new versions of models already on Zenodo",
		Long: `Like upload, but each package's metadata.json names the deposit it
continues in "Existing Model Doi". A new version of that deposit is
drafted, you choose which of the previous files to drop, and the metadata
is committed as <name>.V<version>.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, app, args[0], pipeline.ModeNewVersion)
		},
	}
}

func newPushCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "push <model-list-file>",
		Short: "Add models already deposited on Zenodo to the catalog",
		Long: `Validate every listed package and commit its metadata to the catalog
without touching Zenodo. metadata.json must carry a resolvable Zenodo DOI
in "Model Doi".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, app, args[0], pipeline.ModePush)
		},
	}
}

func runPublish(cmd *cobra.Command, app *App, list string, mode pipeline.Mode) error {
	packages, err := pipeline.ReadList(list)
	if err != nil {
		return err
	}

	out := app.human(cmd)
	deposits := mode != pipeline.ModePush
	r, err := app.pipeline(needs{
		zenodo:      deposits,
		zenodoToken: deposits,
		github:      true,
		githubToken: true,
	}, ui.NewCheckPrinter(out, app.noColor), nil)
	if err != nil {
		return err
	}
	defer r.Close()

	parent := withContext(cmd)
	var session *pipeline.Session
	err = ui.WithSpinner(cmd.ErrOrStderr(), "Validating access tokens", app.noColor, func() error {
		var err error
		session, err = r.OpenSession(parent, mode)
		return err
	})
	if err != nil {
		return app.authFailed(cmd, err)
	}

	// declining a prompt stops the batch; what was committed before still
	// gets its pull request
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	report := r.Batch(ctx, packages, func(ctx context.Context, pkg string) ([]string, error) {
		ui.Header(out, pkg, app.noColor)
		o, err := session.Process(ctx, pkg)
		if err != nil {
			if stderrors.Is(err, pipeline.ErrAborted) {
				cancel()
			}
			app.packageFailed(cmd, pkg, err, "Nothing was committed to the catalog for this package.")
			return nil, err
		}
		printWarnings(out, o.Warnings, app.noColor)
		printOutcome(out, o, app.noColor)
		return o.Warnings, nil
	})

	pr, err := session.Close(parent)
	if err != nil {
		return fmt.Errorf("failed to open pull request for %v: %w", session.Committed(), err)
	}
	if pr != nil {
		ui.WriteSuccess(out, fmt.Sprintf("Pull request #%d opened: %s", pr.Number, pr.HTMLURL), app.noColor)
	} else {
		fmt.Fprint(out, ui.Info("Nothing was committed, so no pull request was opened.", app.noColor))
	}
	return app.finish(cmd, report)
}
