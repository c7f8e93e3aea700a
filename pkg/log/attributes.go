// Package log defines standard attribute keys for grove operations.
//
// Using these keys consistently across the engine, frame and ensemble
// packages keeps the JSON logs filterable: every training run can be
// traced by model id, and every frame operation reports its shape.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the algorithm.
	// Examples: "RandomForest", "GBM"
	ModelNameKey = "model.name"

	// ModelIDKey is the user-assigned identifier of a model instance.
	// Examples: "rf_covtype_default", "gbm_depth10"
	ModelIDKey = "model.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "import", "split", "fit", "predict", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	// Examples: "engine", "frame", "ensemble.rf", "ensemble.gbm"
	ComponentKey = "ml.component"
)

// Frame Shape and Characteristics
const (
	// RowsKey is the number of rows in the frame being processed.
	RowsKey = "frame.rows"

	// FeaturesKey is the number of predictor columns.
	FeaturesKey = "frame.features"

	// TargetKey names the response column.
	TargetKey = "frame.target"

	// ClassesKey is the number of target levels for classification.
	ClassesKey = "frame.classes"

	// SplitFractionsKey records the requested split fractions.
	SplitFractionsKey = "frame.split_fractions"
)

// Training Progress
const (
	// IterationKey is the current boosting round or tree index.
	IterationKey = "training.iteration"

	// TreesKey is the number of trees built so far.
	TreesKey = "training.trees"

	// TrainMetricKey is the training-frame value of the scoring metric.
	TrainMetricKey = "training.train_metric"

	// ValidMetricKey is the validation-frame value of the scoring metric.
	ValidMetricKey = "training.valid_metric"

	// StoppingMetricKey names the early-stopping metric.
	StoppingMetricKey = "training.stopping_metric"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Engine Context
const (
	// ThreadsKey is the engine worker count.
	ThreadsKey = "engine.threads"

	// MaxMemKey is the configured memory ceiling in bytes.
	MaxMemKey = "engine.max_mem_bytes"

	// SeedKey records the random seed for reproducibility.
	SeedKey = "config.seed"
)

// Standard attribute value constants for common operations.
const (
	OperationImport  = "import"
	OperationSplit   = "split"
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
)
