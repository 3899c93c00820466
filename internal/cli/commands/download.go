package commands

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/cli/ui"
	"github.com/ufo-models/ufometa/internal/github"
	"github.com/ufo-models/ufometa/internal/pipeline"
)

func newDownloadCommand(app *App) *cobra.Command {
	var (
		dir         string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "download [catalog-file...]",
		Short: "Download the archived files of catalog models",
		Long: `Resolve each named catalog file's Model Doi to its Zenodo record and
download every file of the record into <dir>/<model>. Names may omit the
.json extension. Without arguments you are asked for a comma separated
list; without --dir you are asked for the folder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, app, args, dir, concurrency)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Download folder")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Models downloaded in parallel")

	return cmd
}

func runDownload(cmd *cobra.Command, app *App, files []string, dir string, concurrency int) error {
	var err error
	if len(files) == 0 {
		answer, err := app.Prompter.Input("Enter a comma separated list of metadata filenames to download:", "")
		if err != nil {
			return err
		}
		files = strings.Split(answer, ",")
	}
	files = catalogNames(files)
	if len(files) == 0 {
		return fmt.Errorf("no catalog files given")
	}
	if dir == "" {
		if dir, err = app.Prompter.Input("Please name your download folder:", "UFOModels"); err != nil {
			return err
		}
	}

	bar := ui.NewProgressBar(cmd.ErrOrStderr(), ui.ProgressBarOptions{
		Total:   len(files),
		Message: "downloading",
		NoColor: app.noColor,
	})
	r, err := app.pipeline(needs{zenodo: true, github: true}, nil, func(cfg *pipeline.Config) {
		cfg.DownloadConcurrency = concurrency
		cfg.OnDownload = func(pipeline.Download) { bar.Add(1) }
	})
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := withContext(cmd)
	results, err := r.Download(ctx, files, dir)
	if err != nil {
		return err
	}
	downloaded := 0
	for _, res := range results {
		if res.Err == nil {
			downloaded++
		}
	}
	bar.FinishWithMessage(fmt.Sprintf("%d of %d models downloaded", downloaded, len(results)))

	out := app.human(cmd)
	failed := 0
	var known []string
	for _, res := range results {
		if res.Err == nil {
			ui.WriteSuccess(out, fmt.Sprintf("%s: %d files in %s", res.File, len(res.Paths), res.Dir), app.noColor)
			continue
		}
		failed++
		if !stderrors.Is(res.Err, github.ErrNotFound) {
			app.packageFailed(cmd, res.File, res.Err, "Nothing was downloaded for this model.")
			continue
		}
		if known == nil {
			if known, err = r.CatalogFiles(ctx); err != nil {
				app.logger.Warn("failed to list catalog files", zap.Error(err))
				known = []string{}
			}
		}
		fmt.Fprint(cmd.ErrOrStderr(), ui.CatalogFileNotFoundError(res.File, ui.SuggestFiles(res.File, known), app.noColor))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(results))
	}
	return nil
}

// catalogNames trims names and adds the .json extension where missing
func catalogNames(names []string) []string {
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		out = append(out, name)
	}
	return out
}
