// Command simulate generates theoretical curve images for a range of
// refractive indices.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"prism-predictor/internal/prism"
	"prism-predictor/internal/progress"
)

func main() {
	outDir := flag.String("out", "template", "Output directory for curve images")
	lo := flag.Float64("lo", 1.50, "Lower refractive index bound (inclusive)")
	hi := flag.Float64("hi", 1.70, "Upper refractive index bound (exclusive)")
	step := flag.Float64("step", 0.001, "Refractive index step")
	apex := flag.Float64("apex", 60, "Prism apex angle in degrees")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create output directory: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sink := progress.Sink(func(e progress.Event) {
		fmt.Printf("\r[%d/%d] %s        ", e.Current, e.Total, e.Message)
	})

	params := prism.DefaultParams().WithApexAngle(*apex)
	sim, err := prism.NewSimulator(params, *outDir, log, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nsimulator: %v\n", err)
		os.Exit(1)
	}

	res, err := sim.Generate(ctx, *lo, *hi, *step)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\ngenerate: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nGenerated %d curve images in %s\n", len(res.Samples), *outDir)
	if len(res.Skipped) > 0 {
		fmt.Printf("Skipped %d physically invalid indices:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("  n=%.4f: %s\n", s.Index, s.Reason)
		}
	}
	if res.Interrupted {
		fmt.Println("Run was interrupted; results are partial.")
	}
}
