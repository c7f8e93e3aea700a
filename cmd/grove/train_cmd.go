package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/grove/engine"
	"github.com/YuminosukeSato/grove/ensemble"
	"github.com/YuminosukeSato/grove/frame"
	"github.com/YuminosukeSato/grove/metrics"
	"github.com/YuminosukeSato/grove/report"
)

// experimentConfig is the YAML experiment file consumed by grove train.
type experimentConfig struct {
	Data   string   `yaml:"data"`
	Target string   `yaml:"target"`
	Ignore []string `yaml:"ignore"`
	Split  struct {
		Fractions  []float64 `yaml:"fractions"`
		Seed       int64     `yaml:"seed"`
		Stratified bool      `yaml:"stratified"`
	} `yaml:"split"`
	Models   []modelSpec `yaml:"models"`
	PlotsDir string      `yaml:"plots_dir"`
}

// modelSpec is one model section: an algorithm kind plus the shared
// hyperparameters inlined.
type modelSpec struct {
	Kind            string `yaml:"kind"`
	ensemble.Params `yaml:",inline"`
}

type trainCmdConfig struct {
	*rootCmdConfig
	configPath string
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the models of an experiment file",
		Long:  `Train every model of a YAML experiment file on a train/valid/test split and print a leaderboard`,
		Run: func(cmd *cobra.Command, args []string) {
			if config.configPath == "" {
				fmt.Fprintln(os.Stderr, "required config flag was not set")
				os.Exit(1)
			}
			exp, err := loadExperiment(config.configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if err := runExperiment(config.rootCmdConfig, exp); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.configPath), "config", "c", "", "path to a YAML experiment file (required)")
	return cmd
}

func loadExperiment(path string) (*experimentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file: %w", err)
	}
	exp := &experimentConfig{}
	if err := yaml.UnmarshalStrict(raw, exp); err != nil {
		return nil, fmt.Errorf("parsing experiment file: %w", err)
	}
	if exp.Data == "" {
		return nil, fmt.Errorf("experiment file sets no data path")
	}
	if exp.Target == "" {
		return nil, fmt.Errorf("experiment file sets no target column")
	}
	if len(exp.Models) == 0 {
		return nil, fmt.Errorf("experiment file defines no models")
	}
	if len(exp.Split.Fractions) == 0 {
		exp.Split.Fractions = []float64{0.7, 0.15}
	}
	return exp, nil
}

type leaderboardRow struct {
	modelID  string
	algo     string
	accuracy float64
	logloss  float64
	model    ensemble.Model
	preds    *frame.Frame
}

func runExperiment(rootConfig *rootCmdConfig, exp *experimentConfig) error {
	eng, err := rootConfig.engine()
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	df, err := frame.ImportFile(exp.Data)
	if err != nil {
		return err
	}
	if len(exp.Ignore) > 0 {
		if df, err = df.Drop(exp.Ignore); err != nil {
			return err
		}
	}

	var parts []*frame.Frame
	if exp.Split.Stratified {
		parts, err = df.StratifiedSplit(exp.Target, exp.Split.Fractions, exp.Split.Seed)
	} else {
		parts, err = df.Split(exp.Split.Fractions, exp.Split.Seed)
	}
	if err != nil {
		return err
	}
	train := parts[0]
	test := parts[len(parts)-1]
	var valid *frame.Frame
	if len(parts) > 2 {
		valid = parts[1]
	}

	rows := make([]leaderboardRow, 0, len(exp.Models))
	for i, spec := range exp.Models {
		model, err := buildModel(spec, eng)
		if err != nil {
			return err
		}
		if err := model.Fit(train, valid, exp.Target, nil); err != nil {
			return fmt.Errorf("training model %d (%s): %w", i+1, model.ModelID(), err)
		}
		preds, err := model.Predict(test)
		if err != nil {
			return err
		}
		acc, err := metrics.FrameAccuracy(preds, test, exp.Target)
		if err != nil {
			return err
		}
		ll, err := metrics.FrameLogLoss(preds, test, exp.Target)
		if err != nil {
			return err
		}
		rows = append(rows, leaderboardRow{
			modelID:  model.ModelID(),
			algo:     model.Algo(),
			accuracy: acc,
			logloss:  ll,
			model:    model,
			preds:    preds,
		})
	}

	sort.SliceStable(rows, func(a, b int) bool { return rows[a].accuracy > rows[b].accuracy })

	fmt.Printf("Leaderboard (test rows: %d)\n", test.NumRows())
	for rank, row := range rows {
		fmt.Printf("%2d. %-24s %-4s accuracy=%.4f logloss=%.4f\n",
			rank+1, row.modelID, row.algo, row.accuracy, row.logloss)
	}

	best := rows[0]
	fmt.Printf("\nVariable importances (%s):\n", best.modelID)
	if err := report.WriteVarImp(os.Stdout, best.model); err != nil {
		return err
	}

	cm, levels, err := metrics.FrameConfusionMatrix(best.preds, test, exp.Target)
	if err != nil {
		return err
	}
	fmt.Printf("\nConfusion matrix (%s):\n", best.modelID)
	if err := report.WriteConfusion(os.Stdout, cm, levels); err != nil {
		return err
	}
	if len(levels) > 2 {
		table, err := metrics.FrameHitRatioTable(best.preds, test, exp.Target)
		if err != nil {
			return err
		}
		fmt.Printf("\nHit ratios (%s):\n", best.modelID)
		if err := report.WriteHitRatio(os.Stdout, table); err != nil {
			return err
		}
	}

	if exp.PlotsDir != "" {
		if err := writePlots(exp.PlotsDir, rows); err != nil {
			return err
		}
	}
	return nil
}

func buildModel(spec modelSpec, eng *engine.Engine) (ensemble.Model, error) {
	switch spec.Kind {
	case "rf", "drf", "random_forest":
		return ensemble.NewRandomForest(spec.Params).WithEngine(eng), nil
	case "gbm":
		return ensemble.NewGBM(spec.Params).WithEngine(eng), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q (want rf or gbm)", spec.Kind)
	}
}

func writePlots(dir string, rows []leaderboardRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, row := range rows {
		if err := report.PlotVarImp(row.model, filepath.Join(dir, row.modelID+"_varimp.png")); err != nil {
			return err
		}
		if err := report.PlotScoringHistory(row.model, filepath.Join(dir, row.modelID+"_scoring.png")); err != nil {
			return err
		}
	}
	return nil
}
