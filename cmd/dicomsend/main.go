package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomsend/internal/config"
	"github.com/mrsinham/dicomsend/internal/logging"
)

// version is set at build time via -ldflags
var version = "dev"

// app holds what every command shares once the root has run.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dicomsend",
		Short: "Scan a folder for DICOM studies, anonymize and upload them",
		Long: `dicomsend walks a folder (a CD, a USB key, an export directory), groups the
DICOM files it finds into studies and series, lets you pick studies, then
redacts identifying attributes and uploads each instance over HTTP.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(a.sendCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.sampleCmd())
	root.AddCommand(versionCmd())
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	cfg.Normalize()

	logger, err := logging.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dicomsend %s\n", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
