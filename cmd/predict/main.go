// Command predict estimates refractive indices for one or more measured
// data files using a saved model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"prism-predictor/internal/curve"
	"prism-predictor/internal/feature"
	"prism-predictor/internal/predict"
	"prism-predictor/internal/store"
)

func main() {
	modelDir := flag.String("models", "saved_models", "Directory of model artifacts")
	modelID := flag.String("model", "", "Model id to load (default: best by comparison)")
	backbone := flag.String("backbone", "weights/backbone.onnx", "Path to frozen backbone weights")
	extend := flag.Bool("extend", false, "Physically extend measured curves to the domain bound")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Usage: predict [-model <id>] <datafile> [datafile...]")
		os.Exit(1)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	bb, err := feature.LoadBackbone(*backbone, feature.DefaultOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "backbone: %v\n", err)
		os.Exit(1)
	}
	defer bb.Close()

	st, err := store.NewStore(*modelDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "model store: %v\n", err)
		os.Exit(1)
	}

	id := *modelID
	if id == "" {
		rankings, err := store.NewComparator(st).Compare(nil)
		if err != nil || len(rankings) == 0 {
			fmt.Fprintf(os.Stderr, "no models available: %v\n", err)
			os.Exit(1)
		}
		id = rankings[0].ModelID
		fmt.Printf("Using best model %s (val MAE %.5f)\n", id, rankings[0].Score)
	}

	opts := curve.DefaultImportOptions()
	opts.ExtendPhysical = *extend

	p := predict.NewPredictor(bb, opts, log, nil)
	if err := p.LoadModel(st, id); err != nil {
		fmt.Fprintf(os.Stderr, "load model: %v\n", err)
		os.Exit(1)
	}

	items, err := p.PredictBatch(context.Background(), flag.Args(), 4)
	if err != nil {
		fmt.Fprintf(os.Stderr, "predict: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-40s %12s %10s %8s\n", "FILE", "INDEX", "CONF", "CLUSTER")
	for _, item := range items {
		if item.Err != nil {
			fmt.Printf("%-40s FAILED: %v\n", item.Path, item.Err)
			continue
		}
		fmt.Printf("%-40s %12.4f %10.2f %8d\n",
			item.Path, item.Result.RefractiveIndex, item.Result.Confidence, item.Result.ClusterID)
	}
}
