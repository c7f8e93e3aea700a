// Command grove trains and inspects tree ensembles from CSV data.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/grove/engine"
	"github.com/YuminosukeSato/grove/pkg/errors"
	"github.com/YuminosukeSato/grove/pkg/log"
)

type rootCmdConfig struct {
	verbose bool
	threads int
	maxMem  string
	seed    int64
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "grove",
		Short: "grove trains Random Forest and GBM classifiers",
		Long:  `A tool to import CSV data, split it, train tree ensembles and inspect their quality`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log training progress to STDERR")
	rootCmd.PersistentFlags().IntVar(&(config.threads), "threads", 0, "worker threads for the engine (defaults to 0: all CPUs)")
	rootCmd.PersistentFlags().StringVar(&(config.maxMem), "max-mem", "", "advisory memory ceiling for the engine, e.g. 4g or 512m")
	rootCmd.PersistentFlags().Int64Var(&(config.seed), "seed", 0, "base random seed (defaults to 0: seed from the clock)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		config.setupLogging()
	}
	rootCmd.AddCommand(versionCmd(), trainCmd(config), splitCmd(config), inspectCmd(config))
	return rootCmd
}

// setupLogging routes slog output and library warnings to STDERR. The
// warning sink renders typed warnings through their zerolog marshalers.
func (rcc *rootCmdConfig) setupLogging() {
	if rcc.verbose {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelWarn)
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(func(w error) {
		ev := zl.Warn()
		var obj zerolog.LogObjectMarshaler
		if errors.As(w, &obj) {
			ev = ev.Object("warning", obj)
		}
		ev.Msg(w.Error())
	})
}

func (rcc *rootCmdConfig) engine() (*engine.Engine, error) {
	return engine.Start(engine.Config{
		MaxThreads: rcc.threads,
		MaxMem:     rcc.maxMem,
		Seed:       rcc.seed,
	})
}
