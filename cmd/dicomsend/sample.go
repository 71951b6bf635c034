package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/dicom/corruption"
	"github.com/mrsinham/dicomsend/internal/dicom/edgecases"
)

func (a *app) sampleCmd() *cobra.Command {
	var (
		opts         dicom.SampleOptions
		modalities   string
		edgeTypes    string
		corruptTypes string
	)
	cmd := &cobra.Command{
		Use:   "sample <dir>",
		Short: "Write a synthetic folder of DICOM studies to try the workflow on",
		Long: `sample writes studies laid out like a removable medium export
(PTnnnnnn/STnnnnnn/SEnnnnnn/IMnnnnnn), each instance carrying the identifying
attributes send redacts, plus non-DICOM files that scanning must skip.

--edge-cases rewrites identifying values of a share of instances with
accented, over-long or missing text. --corrupt damages an exact number of
instances: malformed-lengths and missing-identifiers files are filed as
"other" by a scan, vendor-private files stay sendable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Root = args[0]
			opts.Modalities = dicom.ParseModalities(modalities)
			var err error
			if opts.EdgeCases.Percentage > 0 {
				if opts.EdgeCases.Types, err = edgecases.ParseTypes(edgeTypes); err != nil {
					return err
				}
			}
			if opts.Corruption.Count > 0 {
				if opts.Corruption.Types, err = corruption.ParseTypes(corruptTypes); err != nil {
					return err
				}
			}
			if opts.Seed == 0 {
				opts.Seed = uint64(time.Now().UnixNano())
			}

			start := time.Now()
			tree, err := dicom.WriteSampleTree(opts)
			if err != nil {
				return err
			}
			size, err := treeSize(opts.Root)
			if err != nil {
				return err
			}
			a.log.Debug().Uint64("seed", opts.Seed).Msg("sample written")
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d studies, %s instances and %d other files (%s) to %s in %s.\n",
				len(tree.Studies), humanize.Comma(int64(tree.Files)), tree.Noise,
				humanize.Bytes(uint64(size)), opts.Root, time.Since(start).Round(time.Millisecond))
			if tree.EdgeCases > 0 || len(tree.Corrupted) > 0 {
				damaged := 0
				for _, n := range tree.Corrupted {
					damaged += n
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d instances carry edge cases, %d are corrupted (%d will not catalog).\n",
					tree.EdgeCases, damaged, tree.Uncataloged())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Studies, "studies", 2, "number of studies")
	f.IntVar(&opts.SeriesPerStudy, "series", 2, "series per study")
	f.IntVar(&opts.InstancesPerSeries, "instances", 3, "instances per series")
	f.StringVar(&modalities, "modality", "CT,MR", "comma-separated modalities assigned to series in turn")
	f.IntVar(&opts.NoiseFiles, "noise", 2, "number of non-DICOM files")
	f.IntVar(&opts.Rows, "rows", 64, "image rows, 0 for no pixel data")
	f.IntVar(&opts.Columns, "columns", 64, "image columns, 0 for no pixel data")
	f.Uint64Var(&opts.Seed, "seed", 0, "seed for reproducible output (default: random)")
	f.IntVar(&opts.Workers, "workers", 0, "parallel writers (default: CPU count)")
	f.IntVar(&opts.EdgeCases.Percentage, "edge-cases", 0, "percentage of instances with edge case values (0-100)")
	f.StringVar(&edgeTypes, "edge-case-types", "special-chars,long-names,missing-tags", "comma-separated edge case types")
	f.IntVar(&opts.Corruption.Count, "corrupt", 0, "number of instances to damage")
	f.StringVar(&corruptTypes, "corrupt-types", "all", "comma-separated corruption types: malformed-lengths,missing-identifiers,vendor-private (or 'all')")
	return cmd
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", root, err)
	}
	return total, nil
}
