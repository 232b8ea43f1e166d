package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guimove/capsim/internal/metrics"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Derive population parameters from observed pod metrics",
	Long: `Connects to Prometheus, classifies every running pod as active or idle
from its CPU usage percentile, and reports the population size, the active
fraction and the mean request and usage of each class.

The result can be saved with --write and replayed offline with
'capsim simulate --calibration FILE'.`,
	Example: `  capsim calibrate --prometheus-url http://localhost:9090 --window 72h
  capsim calibrate --discover --write calibration.json`,
	RunE: runCalibrate,
}

func init() {
	f := calibrateCmd.Flags()
	addCalibrationFlags(f)
	f.String("write", "", "write the calibration as JSON to this file")

	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, cleanup, err := metricsSource(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info().Str("backend", src.BackendType()).Dur("window", cfg.Calibration.Window).Msg("calibrating population")
	cal, err := src.Calibrate(ctx, metrics.OptionsFromConfig(&cfg))
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("write"); path != "" {
		if err := metrics.WriteFile(path, cal); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("calibration written")
	}

	w := cmd.OutOrStdout()
	if cfg.Output.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cal); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}
	printCalibration(w, cal)
	return nil
}

func printCalibration(w io.Writer, cal *metrics.Calibration) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "capsim calibration\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "Backend:     %s\n", cal.Backend)
	fmt.Fprintf(w, "Window:      %s ending %s\n", cal.Window, cal.CollectedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Pods:        %d (%d active, %.2f%%)\n", cal.TotalCount, cal.ActiveCount, cal.ActiveFraction*100)
	if cal.DaemonSetPods > 0 || cal.NoMetricsPods > 0 {
		fmt.Fprintf(w, "Skipped:     %d DaemonSet pods; %d pods without usage counted as idle\n",
			cal.DaemonSetPods, cal.NoMetricsPods)
	}
	if cal.ObservedMaxNodes > 0 {
		fmt.Fprintf(w, "Nodes seen:  %d to %d\n", cal.ObservedMinNodes, cal.ObservedMaxNodes)
	}
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 60))

	fmt.Fprintf(w, "%-8s %12s %12s %12s %12s\n", "Class", "CPU request", "Mem request", "CPU usage", "Mem usage")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-8s %12.3f %12.3f %12.3f %12.3f\n", "idle",
		cal.Idle.CPURequest, cal.Idle.MemRequest, cal.Idle.CPUUsage, cal.Idle.MemUsage)
	fmt.Fprintf(w, "%-8s %12.3f %12.3f %12.3f %12.3f\n", "active",
		cal.Active.CPURequest, cal.Active.MemRequest, cal.Active.CPUUsage, cal.Active.MemUsage)
	fmt.Fprintf(w, "\nCPU in cores, memory in GiB.\n\n")
}
