package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modindex/internal/digest"
	"modindex/internal/index"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var incremental bool
	var flat bool
	var workers int
	var output outputFormat

	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Index every module under a directory",
		Long: "Build walks <dir>, digests every file and writes a new index. The previous index\n" +
			"stays in place until the new one is committed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			algorithm, err := digest.ParseAlgorithm(cfg.Index.Digest)
			if err != nil {
				return err
			}

			opts := index.BuildOptions{
				Root:           args[0],
				IndexPath:      cfg.Paths.IndexPath,
				Recursive:      cfg.Index.Recursive,
				SkipExtensions: cfg.Index.SkipExtensions,
				Incremental:    cfg.Index.Incremental,
				Workers:        cfg.Index.Workers,
			}
			if cmd.Flags().Changed("incremental") {
				opts.Incremental = incremental
			}
			if cmd.Flags().Changed("flat") {
				opts.Recursive = !flat
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			builder := index.NewBuilder(ctx.extractor(cfg, algorithm, logger), logger)
			stats, err := builder.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}

			format := output.resolve(cmd)
			if handled, err := writeStructured(cmd, format, stats); handled {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %s files into %s\n", humanize.Comma(int64(stats.Tracks)), cfg.Paths.IndexPath)
			fmt.Fprintf(out, "  extracted: %d  reused: %d  failed: %d  took: %s\n",
				stats.Extracted, stats.Reused, stats.Failed, stats.Duration.Round(time.Millisecond))
			if stats.Failed > 0 {
				fmt.Fprintln(out, "  some files could not be read; see the log for details")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&incremental, "incremental", false, "Reuse records of unchanged files from the current index")
	cmd.Flags().BoolVar(&flat, "flat", false, "Do not descend into subdirectories")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Parallel extraction workers (0 = one per CPU)")
	addOutputFlag(cmd, &output)
	return cmd
}
