package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&App{})
}

func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ufometa",
		Short: "Validate, publish and search UFO model metadata",
		Long: color.CyanString(`ufometa - metadata tooling for UFO physics models

ufometa checks UFO model packages, derives their catalog metadata and
publishes them: the archive goes to Zenodo, the metadata record to the
shared catalog on GitHub through a pull request.

Every batch command takes a list file naming one package path per line.
Blank lines and lines starting with # are skipped.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Config file (default ./ufometa.yaml)")
	flags.StringVar(&app.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&app.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&app.jsonOutput, "json", false, "Print the batch report as JSON")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newValidateCommand(app))
	rootCmd.AddCommand(newGenerateCommand(app))
	rootCmd.AddCommand(newUploadCommand(app))
	rootCmd.AddCommand(newNewVersionCommand(app))
	rootCmd.AddCommand(newPushCommand(app))
	rootCmd.AddCommand(newSearchCommand(app))
	rootCmd.AddCommand(newDownloadCommand(app))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the ufometa version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "ufometa version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command. An interrupt cancels the running batch;
// packages not yet started are reported as failed.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
