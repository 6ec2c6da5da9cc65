package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	outputAuto  outputFormat = "auto"
	outputTable outputFormat = "table"
	outputPlain outputFormat = "plain"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

var _ pflag.Value = (*outputFormat)(nil)

func (o *outputFormat) String() string {
	if *o == "" {
		return string(outputAuto)
	}
	return string(*o)
}

func (o *outputFormat) Set(value string) error {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case outputAuto, outputTable, outputPlain, outputJSON, outputYAML:
		*o = f
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want auto, table, plain, json, or yaml)", value)
	}
}

func (o *outputFormat) Type() string {
	return "format"
}

// resolve turns auto into table on a terminal and plain otherwise.
func (o outputFormat) resolve(cmd *cobra.Command) outputFormat {
	if o != "" && o != outputAuto {
		return o
	}
	if isTerminal(cmd) {
		return outputTable
	}
	return outputPlain
}

func addOutputFlag(cmd *cobra.Command, target *outputFormat) {
	*target = outputAuto
	cmd.Flags().VarP(target, "output", "o", "Output format: auto, table, plain, json, or yaml")
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured handles the json and yaml formats. It reports false for
// every other format.
func writeStructured(cmd *cobra.Command, format outputFormat, v any) (bool, error) {
	switch format {
	case outputJSON:
		return true, writeJSON(cmd, v)
	case outputYAML:
		return true, writeYAML(cmd, v)
	default:
		return false, nil
	}
}
