package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFractions(t *testing.T) {
	got, err := parseFractions("0.7, 0.15")
	if err != nil {
		t.Fatalf("parseFractions failed: %v", err)
	}
	if len(got) != 2 || got[0] != 0.7 || got[1] != 0.15 {
		t.Errorf("fractions = %v", got)
	}

	if _, err := parseFractions("0.7,abc"); err == nil {
		t.Error("expected an error for a non-numeric fraction")
	}
}

func TestLoadExperiment(t *testing.T) {
	raw := `data: iris.csv
target: species
ignore: [id]
split:
  fractions: [0.6, 0.2]
  seed: 42
models:
  - kind: rf
    model_id: rf_demo
    ntrees: 25
  - kind: gbm
    learn_rate: 0.2
    stopping_rounds: 3
`
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	exp, err := loadExperiment(path)
	if err != nil {
		t.Fatalf("loadExperiment failed: %v", err)
	}
	if exp.Target != "species" || exp.Split.Seed != 42 {
		t.Errorf("unexpected experiment: %+v", exp)
	}
	if len(exp.Models) != 2 {
		t.Fatalf("models = %d, want 2", len(exp.Models))
	}
	if exp.Models[0].Kind != "rf" || exp.Models[0].NTrees != 25 || exp.Models[0].ModelID != "rf_demo" {
		t.Errorf("rf spec = %+v", exp.Models[0])
	}
	if exp.Models[1].LearnRate != 0.2 || exp.Models[1].StoppingRounds != 3 {
		t.Errorf("gbm spec = %+v", exp.Models[1])
	}
}

func TestLoadExperimentRejectsIncompleteFiles(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no data", "target: y\nmodels:\n  - kind: rf\n"},
		{"no target", "data: x.csv\nmodels:\n  - kind: rf\n"},
		{"no models", "data: x.csv\ntarget: y\n"},
		{"unknown key", "data: x.csv\ntarget: y\nmodles: []\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "experiment.yaml")
			if err := os.WriteFile(path, []byte(tc.raw), 0o644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := loadExperiment(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBuildModelRejectsUnknownKind(t *testing.T) {
	if _, err := buildModel(modelSpec{Kind: "svm"}, nil); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
