// Package main provides the CLI entry point for trainwatch, a demo harness
// that drives the callback lifecycle with synthetic loss trajectories.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsawler/go-callbacks/callbacks"
	"github.com/tsawler/go-callbacks/monitor"
	"github.com/tsawler/go-callbacks/training"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trainwatch",
	Short: "Trainwatch - training-loop callback demo harness",
	Long: `Trainwatch runs a synthetic training loop through the go-callbacks
lifecycle so the early-stopping heuristics can be observed end to end.

It provides:
  - Synthetic loss trajectories (decay, plateau, diverge, oscillate, nan)
  - The full early-stopping callback set with tunable thresholds
  - Optional live loss-curve streaming to a sidecar dashboard`,
	Version: version,
}

// ============================================================================
// Simulate Command
// ============================================================================

var (
	simShape      string
	simEpochs     int
	simSteps      int
	simSeed       int64
	simNoise      float64
	simPatience   int
	simMinDelta   float64
	simWindow     int
	simAmplitude  float64
	simProgress   bool
	simMonitorURL string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic training loop with the callback set",
	Long:  `Generate a synthetic loss trajectory and run it through the training loop with the full early-stopping callback set registered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := newSynthStep(simShape, simSeed, simNoise)
		if err != nil {
			return err
		}

		history := callbacks.NewHistory()
		noDecrease, err := callbacks.NewNoDecrease(simPatience)
		if err != nil {
			return err
		}
		plateau, err := callbacks.NewPlateau(simPatience, simMinDelta)
		if err != nil {
			return err
		}
		increase, err := callbacks.NewMonotonicIncrease(simWindow)
		if err != nil {
			return err
		}
		oscillation, err := callbacks.NewOscillation(simWindow+1, simAmplitude)
		if err != nil {
			return err
		}

		cbs := []training.Callback{
			history,
			callbacks.NewTerminateOnNaN(),
			noDecrease,
			plateau,
			increase,
			oscillation,
		}

		if simProgress {
			session, err := training.NewProgressSession(simShape, simEpochs, simSteps)
			if err != nil {
				return err
			}
			cbs = append([]training.Callback{session}, cbs...)
		}

		if simMonitorURL != "" {
			config := monitor.DefaultConfig()
			config.BaseURL = simMonitorURL
			service := monitor.NewService(config)
			service.Enable()
			if err := service.CheckHealth(); err != nil {
				fmt.Printf("Warning: monitor sidecar not reachable: %v\n", err)
			}
			mon, err := monitor.NewMonitor(service, simShape, 0)
			if err != nil {
				return err
			}
			cbs = append(cbs, mon)
		}

		loop, err := training.NewLoop(training.LoopConfig{
			Epochs:        simEpochs,
			StepsPerEpoch: simSteps,
			Quiet:         simProgress, // The progress session renders instead
		}, cbs...)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := loop.Run(step.step); err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}

		fmt.Printf("\nRun complete in %v: %d epochs recorded\n", time.Since(start).Round(time.Millisecond), len(loop.Metrics()))
		if loop.Stopped() {
			fmt.Printf("Stopped early: %s\n", loop.StopReason())
		} else {
			fmt.Println("Ran to completion without an early stop")
		}

		if losses := history.EpochLosses(); len(losses) > 0 {
			fmt.Printf("Epoch losses: ")
			for i, loss := range losses {
				if i > 0 {
					fmt.Printf(", ")
				}
				fmt.Printf("%.4f", loss)
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simShape, "shape", "decay", "Loss trajectory: decay, plateau, diverge, oscillate or nan")
	simulateCmd.Flags().IntVar(&simEpochs, "epochs", 20, "Number of epochs")
	simulateCmd.Flags().IntVar(&simSteps, "steps", 10, "Batches per epoch")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 42, "Random seed for the noise term")
	simulateCmd.Flags().Float64Var(&simNoise, "noise", 0.02, "Noise amplitude added to each batch loss")
	simulateCmd.Flags().IntVar(&simPatience, "patience", 3, "Epochs of patience for the no-decrease and plateau callbacks")
	simulateCmd.Flags().Float64Var(&simMinDelta, "min-delta", 0.01, "Minimum improvement for the plateau callback")
	simulateCmd.Flags().IntVar(&simWindow, "window", 3, "Window for the monotonic-increase and oscillation callbacks")
	simulateCmd.Flags().Float64Var(&simAmplitude, "amplitude", 0.1, "Minimum swing for the oscillation callback")
	simulateCmd.Flags().BoolVar(&simProgress, "progress", false, "Render a progress bar instead of epoch summaries")
	simulateCmd.Flags().StringVar(&simMonitorURL, "monitor", "", "Sidecar dashboard URL to stream the loss curve to")

	rootCmd.AddCommand(simulateCmd)
}
