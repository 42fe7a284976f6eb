package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"caveatlab/delegraph/internal/simulator"
)

var (
	simulateDwell string
	simulateJSON  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Animate the six redemption stages of a delegation chain",
	Long: `Runs the illustrative redemption flow: each stage is active for the dwell
time and then completes. Nothing is verified. Ctrl-C resets the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dwell := cfg.Dwell
		if simulateDwell != "" {
			d, err := parseDuration(simulateDwell)
			if err != nil {
				return fmt.Errorf("--dwell: %w", err)
			}
			dwell = d
		}

		sim := simulator.New(simulator.Config{Dwell: dwell, Logger: log})

		enc := json.NewEncoder(os.Stdout)
		last := -2
		unsubscribe := sim.Subscribe(func(st simulator.State) {
			if st.CurrentIndex == last {
				return
			}
			last = st.CurrentIndex
			if simulateJSON {
				_ = enc.Encode(st)
				return
			}
			printTransition(st)
		})
		defer unsubscribe()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !simulateJSON {
			fmt.Printf("\n  Redeeming delegation chain (%s per stage)\n\n", sim.Dwell())
		}
		err := sim.Run(ctx)
		if errors.Is(err, context.Canceled) {
			if !simulateJSON {
				fmt.Println("\n  Simulation reset.")
			}
			return nil
		}
		return err
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateDwell, "dwell", "", "Time each stage stays active (default from DELEGRAPH_DWELL or 1.2s)")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "Emit each state as a JSON line")
	rootCmd.AddCommand(simulateCmd)
}

func printTransition(st simulator.State) {
	switch {
	case st.CurrentIndex < 0:
		return
	case st.CurrentIndex >= len(st.Steps):
		fmt.Println("\n  ✓ Delegation redeemed successfully")
		return
	}
	if st.CurrentIndex > 0 {
		prev := st.Steps[st.CurrentIndex-1]
		fmt.Printf("  ✓ %s\n", prev.Name)
	}
	step := st.Steps[st.CurrentIndex]
	fmt.Printf("  ▶ %d/%d %s: %s\n", st.CurrentIndex+1, len(st.Steps), step.Name, step.Description)
	for _, d := range step.Details {
		fmt.Printf("      %s\n", d)
	}
}
