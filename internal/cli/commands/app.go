package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/cache"
	"github.com/ufo-models/ufometa/internal/cli/config"
	"github.com/ufo-models/ufometa/internal/cli/prompt"
	"github.com/ufo-models/ufometa/internal/cli/ui"
	"github.com/ufo-models/ufometa/internal/github"
	"github.com/ufo-models/ufometa/internal/httpapi"
	"github.com/ufo-models/ufometa/internal/logging"
	"github.com/ufo-models/ufometa/internal/pipeline"
	"github.com/ufo-models/ufometa/internal/resolve"
	"github.com/ufo-models/ufometa/internal/validate"
	"github.com/ufo-models/ufometa/internal/zenodo"
)

// App holds what every command shares: flags, configuration, the logger
// and the seams tests replace
type App struct {
	// Prompter asks the user questions (default: interactive terminal prompts)
	Prompter prompt.Prompter
	// Transport carries every outgoing HTTP request (default: http.DefaultTransport)
	Transport http.RoundTripper

	configPath string
	logLevel   string
	noColor    bool
	jsonOutput bool

	cfg    *config.Config
	logger *zap.Logger
}

// needs selects the service clients a command builds
type needs struct {
	zenodo      bool
	zenodoToken bool
	github      bool
	githubToken bool
}

// load reads the configuration and builds the logger. It runs before every
// command.
func (a *App) load(cmd *cobra.Command) error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), a.noColor))
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("command", cmd.Name()))
	if a.Prompter == nil {
		a.Prompter = prompt.NewSurvey()
	}
	return nil
}

func (a *App) sync() {
	logging.Sync(a.logger)
}

// human is where progress and check lines go. With --json they move to
// stderr so stdout stays machine readable.
func (a *App) human(cmd *cobra.Command) io.Writer {
	if a.jsonOutput {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// run bundles a pipeline with the resources it holds open
type run struct {
	*pipeline.Pipeline
	zenodo *zenodo.Client
	cache  cache.Cache
}

func (r *run) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

// pipeline builds the clients named by n and a pipeline over them. Missing
// tokens are asked for when n requires them.
func (a *App) pipeline(n needs, reporter validate.Reporter, tune func(*pipeline.Config)) (*run, error) {
	cfg := a.cfg
	r := &run{}

	c, err := cache.New(cache.Options{
		Backend: cfg.Cache.Backend,
		TTL:     cfg.Cache.TTL,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	r.cache = c

	resolver := resolve.New(resolve.Options{
		DOIResolver:   cfg.Validation.DOIResolver,
		ArXivResolver: cfg.Validation.ArXivResolver,
		Timeout:       cfg.Validation.Timeout,
		Cache:         c,
		CacheTTL:      cfg.Cache.TTL,
		Transport:     httpapi.Config{Transport: a.Transport},
		Logger:        a.logger,
	})

	deps := pipeline.Deps{
		Resolver: resolver,
		Prompter: a.Prompter,
		Reporter: reporter,
		Logger:   a.logger,
	}

	if n.zenodo {
		token := cfg.Zenodo.Token
		if token == "" && n.zenodoToken {
			if token, err = a.Prompter.Password("Please enter your Zenodo access token:"); err != nil {
				r.Close()
				return nil, err
			}
		}
		r.zenodo = zenodo.New(zenodo.Config{
			BaseURL:   cfg.Zenodo.BaseURL,
			Token:     token,
			RateLimit: cfg.Zenodo.RateLimit,
			Transport: a.Transport,
			Logger:    a.logger,
		})
		deps.Zenodo = r.zenodo
	}

	if n.github {
		token := cfg.GitHub.Token
		if token == "" && n.githubToken {
			if token, err = a.Prompter.Password("Please enter your GitHub access token:"); err != nil {
				r.Close()
				return nil, err
			}
		}
		deps.GitHub = github.New(github.Config{
			APIURL:    cfg.GitHub.APIURL,
			RawURL:    cfg.GitHub.RawURL,
			Token:     token,
			RateLimit: cfg.GitHub.RateLimit,
			Transport: a.Transport,
			Logger:    a.logger,
		})
	}

	pc := pipeline.Config{
		Catalog: pipeline.CatalogRepo{
			Owner:  cfg.GitHub.UpstreamOwner,
			Repo:   cfg.GitHub.UpstreamRepo,
			Branch: cfg.GitHub.Branch,
			Path:   cfg.GitHub.CatalogPath,
		},
		ReferencesAsWarnings: cfg.Validation.ReferencesAsWarnings,
	}
	if tune != nil {
		tune(&pc)
	}
	r.Pipeline = pipeline.New(pc, deps)
	return r, nil
}

// finish prints the batch report and turns failures into the command error
func (a *App) finish(cmd *cobra.Command, report *pipeline.Report) error {
	if a.jsonOutput {
		out, err := report.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d packages failed (run %s)", failed, len(report.Results), report.RunID)
	}
	return nil
}

// packageFailed prints the error box for a package the batch gave up on
func (a *App) packageFailed(cmd *cobra.Command, pkg string, err error, consequence string) {
	fmt.Fprint(cmd.ErrOrStderr(), ui.PackageError(pkg, err, consequence, a.noColor))
}

// authFailed prints the error box for a token the service rejected and
// returns err unchanged
func (a *App) authFailed(cmd *cobra.Command, err error) error {
	var httpErr *httpapi.HTTPError
	if !stderrors.As(err, &httpErr) {
		return err
	}
	if httpErr.StatusCode != http.StatusUnauthorized && httpErr.StatusCode != http.StatusForbidden {
		return err
	}
	service, env := "GITHUB", config.EnvPrefix+"_GITHUB_TOKEN"
	if strings.HasPrefix(httpErr.URL, a.cfg.Zenodo.BaseURL) {
		service, env = "ZENODO", config.EnvPrefix+"_ZENODO_TOKEN"
	}
	fmt.Fprint(cmd.ErrOrStderr(), ui.AuthError(service, env, err.Error(), a.noColor))
	return err
}

func withContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
