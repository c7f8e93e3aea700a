package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/grove/frame"
)

type inspectCmdConfig struct {
	*rootCmdConfig
	input string
}

func inspectCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &inspectCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the columns of a CSV file",
		Long:  `Import a CSV file and print per-column types, missing counts and basic statistics`,
		Run: func(cmd *cobra.Command, args []string) {
			if config.input == "" {
				fmt.Fprintln(os.Stderr, "required input flag was not set")
				os.Exit(1)
			}
			df, err := frame.ImportFile(config.input)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if err := writeSummary(df); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.input), "input", "i", "", "path to the CSV file to summarize (required)")
	return cmd
}

func writeSummary(df *frame.Frame) error {
	fmt.Printf("rows: %d  columns: %d\n\n", df.NumRows(), df.NumCols())

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "column\ttype\tmissing\tsummary")
	for _, name := range df.Names() {
		c, err := df.Col(name)
		if err != nil {
			return err
		}
		summary := ""
		if c.Type == frame.Enum {
			summary = fmt.Sprintf("%d levels: %s", c.Cardinality(), levelPreview(c.Levels(), 5))
		} else {
			summary = fmt.Sprintf("min=%.4g mean=%.4g max=%.4g", c.Min(), c.Mean(), c.Max())
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, c.Type, c.NACount(), summary)
	}
	return tw.Flush()
}

func levelPreview(levels []string, max int) string {
	if len(levels) <= max {
		return strings.Join(levels, ", ")
	}
	return strings.Join(levels[:max], ", ") + ", ..."
}
