package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guimove/capsim/internal/orchestrator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Estimate node count and overflow risk for one configuration",
	Long: `Builds the workload population, packs it onto nodes in random order
for the requested number of trials, and reports the mean node count, the
packing rate and how often nodes exceed their memory or CPU capacity.

The node shape can come from flags, --instance-type (EC2) or --kube-node
(a live node). The population can be calibrated from Prometheus with
--calibrate or from a file written by 'capsim calibrate --write'.`,
	Example: `  capsim simulate --total-count 10000 --active-fraction 0.03 --max-mem 16
  capsim simulate --instance-type m6g.xlarge --trials 1000 --seed 42
  capsim simulate --mode partition --partition-nodes 330 -o json`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	addPopulationFlags(f)
	addNodeFlags(f)
	addSimulationFlags(f)
	addCalibrationFlags(f)

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = orch.Run(cmd.Context())
	return err
}

// newOrchestrator wires the live sources selected by flags and config.
func newOrchestrator(cmd *cobra.Command) (*orchestrator.Orchestrator, func(), error) {
	ctx := cmd.Context()
	cleanup := func() {}

	if count, _ := cmd.Flags().GetBool("count-pods"); count {
		if err := countPods(ctx); err != nil {
			return nil, cleanup, err
		}
	}

	opts := []orchestrator.Option{
		orchestrator.WithWriter(cmd.OutOrStdout()),
		orchestrator.WithLogger(log.Logger),
	}

	src, name, err := capacitySource(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	if src != nil {
		opts = append(opts, orchestrator.WithCapacitySource(src, name))
	}

	if calibrate, _ := cmd.Flags().GetBool("calibrate"); calibrate || cfg.Calibration.File != "" {
		ms, closeTunnel, err := metricsSource(ctx)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = closeTunnel
		opts = append(opts, orchestrator.WithCalibration(ms))
	}

	return orchestrator.New(cfg, opts...), cleanup, nil
}
