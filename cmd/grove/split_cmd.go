package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/grove/frame"
)

type splitCmdConfig struct {
	*rootCmdConfig
	input        string
	fractions    string
	seed         int64
	stratifyBy   string
	outputPrefix string
}

func splitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &splitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a CSV file into partitions",
		Long:  `Split a CSV file into seeded pseudo-random partitions, the remainder forming the last one`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fractions, err := parseFractions(config.fractions)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			df, err := frame.ImportFile(config.input)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			var parts []*frame.Frame
			if config.stratifyBy != "" {
				parts, err = df.StratifiedSplit(config.stratifyBy, fractions, config.seed)
			} else {
				parts, err = df.Split(fractions, config.seed)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			for i, part := range parts {
				path := fmt.Sprintf("%s_part%d.csv", config.outputPrefix, i+1)
				out, err := os.Create(path)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(5)
				}
				err = part.WriteCSV(out)
				out.Close()
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(6)
				}
				fmt.Printf("%s: %d rows\n", path, part.NumRows())
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.input), "input", "i", "", "path to the CSV file to split (required)")
	cmd.PersistentFlags().StringVarP(&(config.fractions), "fractions", "f", "0.7,0.15", "comma-separated partition fractions; the remainder forms the last partition")
	cmd.PersistentFlags().Int64Var(&(config.seed), "split-seed", 1234, "seed for the pseudo-random row assignment")
	cmd.PersistentFlags().StringVar(&(config.stratifyBy), "stratify", "", "categorical column whose class balance every partition should keep")
	cmd.PersistentFlags().StringVarP(&(config.outputPrefix), "output", "o", "part", "prefix for the output CSV files")
	return cmd
}

func (scc *splitCmdConfig) Validate() error {
	if scc.input == "" {
		return fmt.Errorf("required input flag was not set")
	}
	if scc.outputPrefix == "" {
		return fmt.Errorf("output prefix cannot be empty")
	}
	return nil
}

func parseFractions(s string) ([]float64, error) {
	pieces := strings.Split(s, ",")
	fractions := make([]float64, 0, len(pieces))
	for _, piece := range pieces {
		f, err := strconv.ParseFloat(strings.TrimSpace(piece), 64)
		if err != nil {
			return nil, fmt.Errorf("fraction %q is not a number", piece)
		}
		fractions = append(fractions, f)
	}
	return fractions, nil
}
