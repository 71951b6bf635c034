package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomsend/cmd/dicomsend/ui"
	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/ledger"
	"github.com/mrsinham/dicomsend/internal/metrics"
	"github.com/mrsinham/dicomsend/internal/receiver"
	"github.com/mrsinham/dicomsend/internal/scan"
	"github.com/mrsinham/dicomsend/internal/send"
	"github.com/mrsinham/dicomsend/internal/upload"
	"github.com/mrsinham/dicomsend/internal/workflow"
)

var errUnsupported = errors.New("no terminal available: pass --dir to run without the interactive interface")

type sendOptions struct {
	url         string
	dir         string
	modalities  string
	maxStudies  int
	studies     []string
	all         bool
	yes         bool
	ledgerOut   string
	metricsAddr string
}

func (a *app) sendCmd() *cobra.Command {
	var o sendOptions
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Scan a folder, select studies and upload them anonymized",
		Long: `send runs the whole workflow. On a terminal it opens an interactive
interface; with --dir it runs headless, selecting studies with --study or
--all and asking for confirmation unless --yes is given.

The ledger of uploaded instances (study -> series -> SOP instance UIDs) is
written as JSON to --ledger-out, or to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.applySendFlags(cmd, o)
			return a.runSend(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.url, "url", "", "upload endpoint URL")
	f.StringVar(&o.dir, "dir", "", "folder to scan; runs without the interactive interface")
	f.StringVar(&o.modalities, "modality", "", "comma-separated modalities to keep (default: all)")
	f.IntVar(&o.maxStudies, "max-studies", 0, "maximum number of studies to select, 0 for unlimited")
	f.StringArrayVar(&o.studies, "study", nil, "study to send, by UID or #ordinal (repeatable)")
	f.BoolVar(&o.all, "all", false, "send every study found")
	f.BoolVarP(&o.yes, "yes", "y", false, "do not ask for confirmation")
	f.StringVar(&o.ledgerOut, "ledger-out", "", "write the ledger to this file instead of stdout")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

// applySendFlags lets explicitly set flags override the configuration file.
func (a *app) applySendFlags(cmd *cobra.Command, o sendOptions) {
	f := cmd.Flags()
	if f.Changed("url") {
		a.cfg.URL = o.url
	}
	if f.Changed("modality") {
		a.cfg.Modalities = dicom.ParseModalities(o.modalities)
	}
	if f.Changed("max-studies") {
		a.cfg.MaxStudies = o.maxStudies
	}
	if f.Changed("ledger-out") {
		a.cfg.LedgerOut = o.ledgerOut
	}
	if f.Changed("metrics-addr") {
		a.cfg.MetricsAddr = o.metricsAddr
	}
}

func (a *app) runSend(cmd *cobra.Command, o sendOptions) error {
	ctx := cmd.Context()
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if err := a.cfg.ValidateTarget(); err != nil {
		return err
	}

	rec := metrics.New()
	client, err := upload.New(upload.Options{
		Retries:     a.cfg.Upload.Retries,
		RetryDelay:  a.cfg.Upload.RetryDelay,
		Timeout:     a.cfg.Upload.Timeout,
		Headers:     a.cfg.Upload.Headers,
		BearerToken: a.cfg.Upload.BearerToken,
		Cookies:     a.cfg.Upload.Cookies,
		Log:         a.log,
		Metrics:     rec,
	})
	if err != nil {
		return err
	}

	if a.cfg.MetricsAddr != "" {
		router := chi.NewRouter()
		router.Handle("/metrics", rec.Handler())
		go func() {
			if err := receiver.ListenAndServe(ctx, a.cfg.MetricsAddr, router, a.log, nil); err != nil {
				a.log.Error().Err(err).Msg("metrics listener")
			}
		}()
	}

	written := make(chan error, 1)
	stdout := cmd.OutOrStdout()
	m := workflow.New(workflow.Config{
		URL:        a.cfg.URL,
		Modalities: a.cfg.Modalities,
		MaxStudies: a.cfg.MaxStudies,
		OnComplete: func(tree ledger.Tree) {
			err := writeLedger(a.cfg.LedgerOut, stdout, tree)
			if err != nil {
				a.log.Error().Err(err).Msg("write ledger")
			}
			select {
			case written <- err:
			default:
			}
		},
	}, workflow.Deps{
		Decoder: dicom.Codec{},
		Scanner: &scan.Pipeline{Tick: a.cfg.Scan.Tick, Workers: a.cfg.Scan.Workers, Log: a.log},
		Sender:  &send.Pipeline{Decoder: dicom.Codec{}, Uploader: client, Log: a.log, Metrics: rec},
		Log:     a.log,
		Metrics: rec,
	})

	interactive := o.dir == ""
	supported := !interactive || (isTerminal(os.Stdin) && isTerminal(os.Stdout))
	if err := m.Start(ctx, supported); err != nil {
		return err
	}
	if m.State() == workflow.EnvironmentUnsupported {
		return errUnsupported
	}

	if interactive {
		return ui.Run(ctx, m)
	}
	h := &headless{
		m:       m,
		out:     cmd.ErrOrStderr(),
		studies: o.studies,
		all:     o.all,
		yes:     o.yes,
		written: written,
		confirm: confirmOnTerminal,
	}
	return h.run(ctx, o.dir)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeLedger writes tree as indented JSON to path, or to stdout when path
// is empty or "-". Files are replaced atomically.
func writeLedger(path string, stdout io.Writer, tree ledger.Tree) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// waitLedger blocks until the completion callback has written the ledger.
func waitLedger(ctx context.Context, written <-chan error) error {
	select {
	case err := <-written:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
