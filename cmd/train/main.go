// Command train optimizes hyperparameters over a template image directory
// and saves the best model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"prism-predictor/internal/feature"
	"prism-predictor/internal/progress"
	"prism-predictor/internal/store"
	"prism-predictor/internal/train"
)

func main() {
	dataDir := flag.String("data", "template", "Directory of Rn_*.png training images")
	modelDir := flag.String("models", "saved_models", "Directory for model artifacts")
	backbone := flag.String("backbone", "weights/backbone.onnx", "Path to frozen backbone weights")
	trials := flag.Int("trials", 40, "Number of optimization trials")
	seed := flag.Uint64("seed", 42, "Random seed")
	flag.Parse()

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

	if err := os.MkdirAll(*modelDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create model directory: %v\n", err)
		os.Exit(1)
	}
	st, err := store.NewStore(*modelDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "model store: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sink := progress.Sink(func(e progress.Event) {
		fmt.Printf("[%s %d/%d] %s\n", e.Stage, e.Current, e.Total, e.Message)
	})

	ds, err := train.LoadDataset(ctx, *dataDir, bb, log, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load dataset: %v\n", err)
		os.Exit(1)
	}

	cfg := train.DefaultConfig()
	cfg.Trials = *trials
	cfg.Seed = *seed

	trainer := train.NewTrainer(train.DefaultSearchSpace(), cfg, log, sink)
	id, res, err := trainer.TrainAndSave(ctx, st, ds.X, ds.Y)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSaved model %s\n", id)
	fmt.Printf("Best trial: #%d  val MAE %.5f  %s k=%d %s\n",
		res.Best.Number, res.Best.Score,
		res.Best.Params.Algorithm, res.Best.Params.K, res.Best.Params.Kernel)
	if res.Interrupted {
		fmt.Println("Run was interrupted; best-so-far model was saved.")
	}
}
