package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ufo-models/ufometa/internal/catalog"
	"github.com/ufo-models/ufometa/internal/cli/ui"
)

var searchOutputs = []string{"table", "json", "yaml"}

func newSearchCommand(app *App) *cobra.Command {
	var (
		key     string
		output  string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find catalog models by paper, DOI or particle",
		Long: `Search the catalog. The key selects what the query matches:

  paper  any Paper_id value of the record
  doi    the Model Doi, together with every other version of that model
  pdg    comma separated PDG codes, all of which the model must contain
  name   comma separated particle names, resolved to PDG codes

Searching only for Standard Model elementary particles is rejected since
every model contains them. Without a query you are asked for the key and
the query interactively.

The catalog is mirrored into a local index before each search; --offline
searches the last mirrored copy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runSearch(cmd, app, key, query, output, offline)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Search key: paper, doi, pdg or name")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&offline, "offline", false, "Search the local index without syncing it")

	return cmd
}

func runSearch(cmd *cobra.Command, app *App, keyName, query, output string, offline bool) error {
	if !validOutput(output) {
		return fmt.Errorf("invalid output %q (expected %s)", output, strings.Join(searchOutputs, ", "))
	}

	key, query, err := askSearch(app, keyName, query)
	if err != nil {
		return err
	}

	ctx := withContext(cmd)
	path := app.cfg.Index.Path
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	ix, err := catalog.OpenIndex(ctx, path)
	if err != nil {
		return err
	}
	defer ix.Close()

	r, err := app.pipeline(needs{zenodo: true, github: true}, nil, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	message := "Searching the local index"
	if !offline {
		message = "Syncing the catalog index"
	}
	spinner := ui.NewSpinner(cmd.ErrOrStderr(), ui.SpinnerOptions{Message: message, NoColor: app.noColor})
	spinner.Start()
	if !offline {
		if _, err := r.SyncIndex(ctx, ix); err != nil {
			spinner.Error("Syncing the catalog index failed")
			return err
		}
		spinner.UpdateMessage("Searching the catalog index")
	}

	files, err := catalog.NewSearcher(ix, r.zenodo, app.logger).Search(ctx, key, query)
	if err != nil {
		spinner.Error("Search failed")
		return err
	}
	summaries, err := ix.Summaries(ctx, files)
	if err != nil {
		spinner.Error("Search failed")
		return err
	}
	spinner.Success(fmt.Sprintf("%d matching models", len(summaries)))
	return renderSummaries(cmd.OutOrStdout(), summaries, output, app.noColor)
}

// askSearch fills in the key and query the command line left out
func askSearch(app *App, keyName, query string) (catalog.SearchKey, string, error) {
	if keyName == "" && query != "" {
		keyName = string(catalog.SearchName)
	}
	if keyName == "" {
		options := make([]string, len(catalog.SearchKeys))
		for i, k := range catalog.SearchKeys {
			options[i] = string(k)
		}
		var err error
		if keyName, err = app.Prompter.Select("Please choose your keyword type:", options, options[0]); err != nil {
			return "", "", err
		}
	}
	key, err := catalog.ParseSearchKey(keyName)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(query) == "" {
		if query, err = app.Prompter.Input(fmt.Sprintf("Please enter your needed %s:", key), ""); err != nil {
			return "", "", err
		}
	}
	if strings.TrimSpace(query) == "" {
		return "", "", fmt.Errorf("empty %s query", key)
	}
	return key, query, nil
}

func validOutput(output string) bool {
	for _, o := range searchOutputs {
		if o == output {
			return true
		}
	}
	return false
}

func renderSummaries(w io.Writer, summaries []catalog.Summary, output string, noColor bool) error {
	switch output {
	case "json":
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summaries); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(summaries) == 0 {
		fmt.Fprint(w, ui.Info("No model in the catalog matches.", noColor))
		return nil
	}
	table := ui.NewTable(w, []string{"Metadata file", "Model Name", "Paper ID", "Model DOI"}, &ui.TableOptions{NoColor: noColor})
	for _, s := range summaries {
		table.AddRow(s.File, s.ModelName, s.PaperID, s.ModelDOI)
	}
	table.Render()
	return nil
}
