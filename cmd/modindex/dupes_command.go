package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"modindex/internal/dupes"
	"modindex/internal/track"
)

type tierValue track.ClusterTier

var _ pflag.Value = (*tierValue)(nil)

func (t *tierValue) String() string {
	if *t == "" {
		return string(track.ClusterExact)
	}
	return string(*t)
}

func (t *tierValue) Set(value string) error {
	tier, err := track.ParseClusterTier(value)
	if err != nil {
		return err
	}
	*t = tierValue(tier)
	return nil
}

func (t *tierValue) Type() string {
	return "tier"
}

func newDupesCommand(ctx *commandContext) *cobra.Command {
	var filters filterFlags
	var output outputFormat
	var minSize int
	tier := tierValue(track.ClusterExact)

	tierNames := make([]string, len(track.ClusterTiers))
	for i, t := range track.ClusterTiers {
		tierNames[i] = string(t)
	}

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "List clusters of duplicate modules in the index",
		Long: "Dupes groups the whole index by one identity tier and prints every group with at\n" +
			"least --min-size members that passes the filters. Output order is stable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pipeline, err := filters.pipeline(cmd, cfg.Filter)
			if err != nil {
				return err
			}
			if minSize < 1 {
				return errors.New("--min-size must be at least 1")
			}
			store, _, err := ctx.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			clusters, err := dupes.Clusters(cmd.Context(), store, track.ClusterTier(tier), minSize, pipeline)
			if err != nil {
				return err
			}

			format := output.resolve(cmd)
			if handled, err := writeStructured(cmd, format, clusters); handled {
				return err
			}
			out := cmd.OutOrStdout()
			if format == outputTable {
				fmt.Fprintln(out, renderClusterTable(clusters))
				fmt.Fprintf(out, "%d clusters\n", len(clusters))
				return nil
			}
			return dupes.WriteText(out, clusters)
		},
	}

	cmd.Flags().Var(&tier, "tier", "Identity tier: "+strings.Join(tierNames, ", "))
	cmd.Flags().IntVar(&minSize, "min-size", 2, "Smallest cluster to report")
	filters.register(cmd, false)
	addOutputFlag(cmd, &output)
	return cmd
}

func renderClusterTable(clusters []dupes.Cluster) string {
	var rows [][]string
	for i, cluster := range clusters {
		for j, member := range cluster.Members {
			id, key := "", ""
			if j == 0 {
				id = strconv.Itoa(i + 1)
				key = cluster.Key
				if len(key) > 16 {
					key = key[:16]
				}
			}
			rows = append(rows, []string{id, key, member.Path})
		}
	}
	return renderTable([]string{"#", "Key", "Path"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}
