package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"modindex/internal/match"
	"modindex/internal/track"
)

type matchReport struct {
	Query      string            `json:"query" yaml:"query"`
	Candidates []match.Candidate `json:"candidates" yaml:"candidates"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var filters filterFlags
	var output outputFormat

	cmd := &cobra.Command{
		Use:   "match <file|dir>...",
		Short: "Find indexed copies of the given modules",
		Long: "Match digests each query file and looks it up by whole-file digest and by\n" +
			"pattern digest. Candidates found by both are reported as exact+pattern.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pipeline, err := filters.pipeline(cmd, cfg.Filter)
			if err != nil {
				return err
			}
			store, logger, err := ctx.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			queries, err := ctx.loadQueries(cmd.Context(), cfg, store, logger, args)
			if err != nil {
				return err
			}

			engine := match.NewEngine(store)
			reports := make([]matchReport, 0, len(queries))
			for _, q := range queries {
				candidates, err := engine.Match(cmd.Context(), q.Record)
				if err != nil {
					return err
				}
				kept := match.Keep(candidates, pipeline.Apply(match.Records(candidates)))
				reports = append(reports, matchReport{Query: q.Source, Candidates: kept})
			}

			format := output.resolve(cmd)
			if handled, err := writeStructured(cmd, format, reports); handled {
				return err
			}
			if format == outputTable {
				fmt.Fprintln(cmd.OutOrStdout(), renderMatchTable(reports))
				return nil
			}
			return writeMatchPlain(cmd.OutOrStdout(), reports)
		},
	}

	filters.register(cmd, true)
	addOutputFlag(cmd, &output)
	return cmd
}

func renderMatchTable(reports []matchReport) string {
	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		if len(report.Candidates) == 0 {
			rows = append(rows, []string{report.Query, "-", "no matches"})
			continue
		}
		for i, c := range report.Candidates {
			query := ""
			if i == 0 {
				query = report.Query
			}
			rows = append(rows, []string{query, c.Record.Path, c.Tier.String()})
		}
	}
	return renderTable([]string{"Query", "Match", "Tier"}, rows, nil)
}

func writeMatchPlain(w io.Writer, reports []matchReport) error {
	for _, report := range reports {
		if _, err := fmt.Fprintf(w, "%s\n", report.Query); err != nil {
			return err
		}
		if len(report.Candidates) == 0 {
			if _, err := fmt.Fprintln(w, "  no matches"); err != nil {
				return err
			}
			continue
		}
		for _, c := range report.Candidates {
			if _, err := fmt.Fprintf(w, "  %-13s %s\n", c.Tier, c.Record.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

type reuseReport struct {
	Query string            `json:"query" yaml:"query"`
	Hits  []match.SampleHit `json:"hits" yaml:"hits"`
}

func newReuseCommand(ctx *commandContext) *cobra.Command {
	var output outputFormat

	cmd := &cobra.Command{
		Use:   "reuse <file|dir>...",
		Short: "List other modules that contain the same sample data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, logger, err := ctx.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			queries, err := ctx.loadQueries(cmd.Context(), cfg, store, logger, args)
			if err != nil {
				return err
			}

			engine := match.NewEngine(store)
			reports := make([]reuseReport, 0, len(queries))
			for _, q := range queries {
				hits, err := engine.SampleReuse(cmd.Context(), q.Record)
				if err != nil {
					return err
				}
				reports = append(reports, reuseReport{Query: q.Source, Hits: hits})
			}

			format := output.resolve(cmd)
			if handled, err := writeStructured(cmd, format, reports); handled {
				return err
			}
			if format == outputTable {
				fmt.Fprintln(cmd.OutOrStdout(), renderReuseTable(reports))
				return nil
			}
			return writeReusePlain(cmd.OutOrStdout(), reports)
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}

func sampleLabel(s track.Sample) string {
	if s.Text == "" {
		return fmt.Sprintf("#%d", s.Ordinal)
	}
	return fmt.Sprintf("#%d %s", s.Ordinal, s.Text)
}

func renderReuseTable(reports []reuseReport) string {
	var rows [][]string
	for _, report := range reports {
		if len(report.Hits) == 0 {
			rows = append(rows, []string{report.Query, "-", "-", "no shared samples"})
			continue
		}
		first := true
		for _, hit := range report.Hits {
			for _, m := range hit.Matches {
				query := ""
				if first {
					query = report.Query
					first = false
				}
				rows = append(rows, []string{query, sampleLabel(hit.Sample), m.Track.Path, sampleLabel(m.Sample)})
			}
		}
	}
	return renderTable([]string{"Query", "Sample", "Found In", "As"}, rows, nil)
}

func writeReusePlain(w io.Writer, reports []reuseReport) error {
	for _, report := range reports {
		if _, err := fmt.Fprintf(w, "%s\n", report.Query); err != nil {
			return err
		}
		if len(report.Hits) == 0 {
			if _, err := fmt.Fprintln(w, "  no shared samples"); err != nil {
				return err
			}
			continue
		}
		for _, hit := range report.Hits {
			if _, err := fmt.Fprintf(w, "  sample %s\n", sampleLabel(hit.Sample)); err != nil {
				return err
			}
			for _, m := range hit.Matches {
				if _, err := fmt.Fprintf(w, "    %s (%s)\n", m.Track.Path, sampleLabel(m.Sample)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
