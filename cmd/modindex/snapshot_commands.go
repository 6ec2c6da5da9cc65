package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modindex/internal/config"
	"modindex/internal/snapshot"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Publish or install prebuilt index snapshots",
	}

	snapshotCmd.AddCommand(newSnapshotFetchCommand(ctx))
	snapshotCmd.AddCommand(newSnapshotCreateCommand(ctx))
	return snapshotCmd
}

func newSnapshotFetchCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the published snapshot and install it as the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			snapCfg := cfg.Snapshot
			if strings.TrimSpace(sourceURL) != "" {
				snapCfg.URL = strings.TrimSpace(sourceURL)
			}
			source, err := snapshot.NewSource(cmd.Context(), snapCfg)
			if err != nil {
				return err
			}
			if source == nil {
				return errors.New("no snapshot url configured; set snapshot.url or pass --url")
			}

			b := snapshot.NewBootstrapper(cfg, source, logger)
			run := b.Ensure
			if force {
				run = b.Refresh
			}
			result, err := run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Fetched {
				fmt.Fprintf(out, "Downloaded %s from %s\n", humanize.IBytes(uint64(result.Bytes)), source)
			} else {
				fmt.Fprintf(out, "Local snapshot %s is current (version %d)\n", cfg.Paths.SnapshotPath, result.Version)
			}
			if result.Installed {
				fmt.Fprintf(out, "Installed index at %s\n", cfg.Paths.IndexPath)
			} else {
				fmt.Fprintln(out, "Index already up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download and reinstall even when the local copy is current")
	cmd.Flags().StringVar(&sourceURL, "url", "", "Override snapshot.url for this run")
	return cmd
}

func newSnapshotCreateCommand(ctx *commandContext) *cobra.Command {
	var codecFlag string
	var outPath string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Pack the committed index into a snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			codecName := cfg.Snapshot.Codec
			if cmd.Flags().Changed("codec") {
				codecName = codecFlag
			}
			codec, err := snapshot.ParseCodec(codecName)
			if err != nil {
				return err
			}
			target := cfg.Paths.SnapshotPath
			if strings.TrimSpace(outPath) != "" {
				if target, err = config.ExpandPath(outPath); err != nil {
					return err
				}
			}

			if err := snapshot.Pack(cmd.Context(), cfg.Paths.IndexPath, target, codec); err != nil {
				return err
			}
			size := int64(0)
			if info, err := os.Stat(target); err == nil {
				size = info.Size()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s snapshot (%s, version %d) to %s\n",
				codec, humanize.IBytes(uint64(size)), snapshot.CurrentVersion(), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&codecFlag, "codec", "", "Payload codec: zstd, lz4, or none (default snapshot.codec)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination file (default paths.snapshot_path)")
	return cmd
}
