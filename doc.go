// Package grove provides ensemble tree learning for Go: Random Forest and
// Gradient Boosting Machine classifiers over an in-memory columnar frame.
//
// Grove mirrors the workflow of distributed ML platforms (import a CSV into
// a frame, split it into train/validation/test partitions with a seed, fit
// bagged or boosted tree ensembles with early stopping on a validation
// metric, then inspect accuracy, confusion matrices and variable
// importances) while running entirely inside a single process on a
// thread-pooled local engine.
//
// # Quick Start
//
//	eng, err := engine.Start(engine.Config{MaxThreads: 4, MaxMem: "4g"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Shutdown()
//
//	df, err := frame.ImportFile("covtype.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	parts, err := df.Split([]float64{0.7, 0.15}, 1234)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	train, valid, test := parts[0], parts[1], parts[2]
//
//	rf := ensemble.NewRandomForest(ensemble.Params{NTrees: 50, Seed: 1234}).
//	    WithEngine(eng)
//	if err := rf.Fit(train, valid, "Cover_Type", nil); err != nil {
//	    log.Fatal(err)
//	}
//	preds, err := rf.Predict(test)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	acc, _ := metrics.FrameAccuracy(preds, test, "Cover_Type")
//	fmt.Printf("test accuracy: %.4f\n", acc)
//
// # Packages
//
//   - engine: local compute engine (thread pool, memory cap, seeding)
//   - frame: columnar frame, CSV import, seeded fraction splits
//   - ensemble: RandomForest and GBM trainers, early stopping, importances
//   - metrics: accuracy, logloss, confusion matrix, AUC, hit ratios
//   - report: text tables and gonum/plot charts for model inspection
package grove
