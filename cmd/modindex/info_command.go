package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modindex/internal/index"
)

type indexInfo struct {
	Path      string     `json:"path" yaml:"path"`
	SizeBytes int64      `json:"size_bytes" yaml:"size_bytes"`
	Meta      index.Meta `json:"meta" yaml:"meta"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var output outputFormat

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show metadata of the committed index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			meta, err := store.Meta(cmd.Context())
			if err != nil {
				return err
			}
			info := indexInfo{Path: store.Path(), Meta: meta}
			if st, err := os.Stat(store.Path()); err == nil {
				info.SizeBytes = st.Size()
			}

			format := output.resolve(cmd)
			if handled, err := writeStructured(cmd, format, info); handled {
				return err
			}
			rows := [][]string{
				{"Index", info.Path},
				{"Size", humanize.IBytes(uint64(info.SizeBytes))},
				{"Tracks", humanize.Comma(int64(meta.TrackCount))},
				{"Digest", meta.Algorithm.String()},
				{"Schema", fmt.Sprintf("%d", meta.SchemaVersion)},
				{"Root", meta.Root},
				{"Build", meta.BuildID},
				{"Built", meta.BuiltAt.Local().Format(time.RFC3339) + " (" + humanize.Time(meta.BuiltAt) + ")"},
			}
			out := cmd.OutOrStdout()
			if format == outputTable {
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintf(out, "%-7s %s\n", row[0]+":", row[1])
			}
			return nil
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}
