package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guimove/capsim/internal/orchestrator"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Compare configurations side by side",
	Long: `Runs the same population through one simulation per value of a
parameter and ranks the results by cost, density and overflow risk.
Ranking weights come from scoring.weights in the config file.

Parameters: ` + strings.Join(orchestrator.SweepParams(), ", "),
	Example: `  capsim sweep --param max-mem --values 8,16,32
  capsim sweep --param active-fraction --values 0.01,0.03,0.05 -o markdown`,
	RunE: runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.String("param", "", "parameter to vary (required)")
	f.Float64Slice("values", nil, "values to try (required)")
	addPopulationFlags(f)
	addNodeFlags(f)
	addSimulationFlags(f)
	addCalibrationFlags(f)

	_ = sweepCmd.MarkFlagRequired("param")
	_ = sweepCmd.MarkFlagRequired("values")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	param, _ := cmd.Flags().GetString("param")
	values, err := cmd.Flags().GetFloat64Slice("values")
	if err != nil {
		return fmt.Errorf("parsing --values: %w", err)
	}

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = orch.Sweep(cmd.Context(), param, values)
	return err
}
