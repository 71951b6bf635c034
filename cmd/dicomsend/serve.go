package main

import (
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/metrics"
	"github.com/mrsinham/dicomsend/internal/receiver"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr    string
		root    string
		maxBody int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an endpoint that stores anonymized uploads",
		Long: `serve accepts POST /studies with Content-Type application/dicom, refuses
instances whose identifying attributes are not redacted and stores the rest
as <root>/<study>/<series>/<sop>.dcm. GET /healthz and GET /metrics are
also served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("root") {
				a.cfg.Serve.Root = root
			}
			srv := &receiver.Server{
				Store:        receiver.Store{Root: a.cfg.Serve.Root},
				Decoder:      dicom.Codec{},
				MaxBodyBytes: maxBody,
				Log:          a.log,
				Metrics:      metrics.New(),
			}
			a.log.Info().Str("root", a.cfg.Serve.Root).Msg("storing uploads")
			return receiver.ListenAndServe(cmd.Context(), a.cfg.Serve.Addr, srv.Handler(), a.log, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8104)")
	cmd.Flags().StringVar(&root, "root", "", "directory receiving uploads (default from config, ./received)")
	cmd.Flags().Int64Var(&maxBody, "max-body", receiver.DefaultMaxBodyBytes, "largest accepted upload in bytes")
	return cmd
}
