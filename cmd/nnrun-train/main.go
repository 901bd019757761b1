// Command nnrun-train is a minimal example driver: it builds a small
// net over synthetic data and trains it for a configured number of
// epochs, reporting the confusion matrix at the end. It exists to
// exercise the public nn/score API end-to-end, not as a serious
// training CLI.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/backend/accel"
	"github.com/ollama/nnrun/backend/cpu"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/nn"
	"github.com/ollama/nnrun/score"
	"github.com/ollama/nnrun/tensor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		useAccel  bool
		epochs    int
		batchSize int
		lr        float64
		lrRangeLo float64
		lrRangeHi float64
		samples   int
	)

	cmd := &cobra.Command{
		Use:   "nnrun-train",
		Short: "Train a small example net and report classification accuracy",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

			var be backend.Backend
			if useAccel {
				be = accel.New(16, batchSize, 4)
			} else {
				be = cpu.New(batchSize)
			}

			effectiveLR := lr
			if lrRangeHi > lrRangeLo {
				rng := rand.New(rand.NewSource(0))
				effectiveLR = nn.ParamRange{Min: lrRangeLo, Max: lrRangeHi}.Sample(rng)
				logger.Info("sampled learning rate from range", "lr", effectiveLR)
			}

			net, err := nn.NewBuilder(be, 4).
				AddLayer(8, nn.ActivationSigmoid).
				AddLayer(3, nn.ActivationSoftmax).
				Build()
			if err != nil {
				return fmt.Errorf("build net: %w", err)
			}

			x, y := syntheticDataset(samples, 4, 3)

			scorer := score.NewMulticlassScorer(be, 3)
			rng := rand.New(rand.NewSource(1))
			if err := net.Train(rng, x, y, epochs, effectiveLR, 0.9, scorer); err != nil {
				return fmt.Errorf("train: %w", err)
			}

			report, err := scorer.Report()
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			fmt.Println(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useAccel, "accel", false, "use the accelerator backend instead of CPU")
	cmd.Flags().IntVar(&epochs, "epochs", 20, "number of training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "max batch size")
	cmd.Flags().Float64Var(&lr, "lr", 0.05, "learning rate (ignored if --lr-range-max is greater than --lr-range-min)")
	cmd.Flags().Float64Var(&lrRangeLo, "lr-range-min", 0, "lower bound of a learning-rate sweep range")
	cmd.Flags().Float64Var(&lrRangeHi, "lr-range-max", 0, "upper bound of a learning-rate sweep range")
	cmd.Flags().IntVar(&samples, "samples", 300, "number of synthetic samples to generate")

	return cmd
}

// syntheticDataset generates a toy multiclass dataset: each sample's
// label is the index of the largest of its first `classes` input
// features (any further features are noise), so a net with
// enough capacity can learn it exactly.
func syntheticDataset(n, features, classes int) (tensor.View[float32, dims.D2], tensor.View[float32, dims.D2]) {
	rng := rand.New(rand.NewSource(42))
	x := make([]float32, n*features)
	y := make([]float32, n*classes)

	for i := 0; i < n; i++ {
		best := 0
		for f := 0; f < features; f++ {
			v := rng.Float32()
			x[i*features+f] = v
			if f < classes && v > x[i*features+best] {
				best = f
			}
		}
		y[i*classes+best] = 1
	}

	return tensor.NewView(x, dims.D2{N0: n, N1: features}),
		tensor.NewView(y, dims.D2{N0: n, N1: classes})
}
