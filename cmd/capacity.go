package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	awspkg "github.com/guimove/capsim/internal/aws"
	"github.com/guimove/capsim/internal/model"
)

var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Show the node shape an instance type or live node resolves to",
	Long: `Resolves --instance-type through EC2 (vCPUs, memory, EKS kubelet
reservation, on-demand and spot prices) or --kube-node through the
Kubernetes API (capacity and allocatable), and prints the node shape
'capsim simulate' would use.`,
	Example: `  capsim capacity --instance-type m6i.2xlarge --region eu-west-1
  capsim capacity --kube-node ip-10-0-1-23.ec2.internal -o json`,
	RunE: runCapacity,
}

func init() {
	f := capacityCmd.Flags()
	f.String("instance-type", "", "EC2 instance type")
	f.String("kube-node", "", "Kubernetes node name")
	f.Bool("refresh", false, "clear the AWS cache before resolving")

	capacityCmd.MarkFlagsMutuallyExclusive("instance-type", "kube-node")
	capacityCmd.MarkFlagsOneRequired("instance-type", "kube-node")
	rootCmd.AddCommand(capacityCmd)
}

func runCapacity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh && cfg.AWS.CacheDir != "" {
		if err := awspkg.NewFileCache(cfg.AWS.CacheDir).Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		log.Debug().Str("dir", cfg.AWS.CacheDir).Msg("cache cleared")
	}

	src, name, err := capacitySource(ctx)
	if err != nil {
		return err
	}
	if src == nil {
		return errors.New("provide --instance-type or --kube-node")
	}

	nc, err := src.NodeCapacity(ctx, name)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cfg.Output.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nc); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}
	printCapacity(w, nc)
	return nil
}

func printCapacity(w io.Writer, nc model.NodeCapacity) {
	alloc := nc.Allocatable()

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s (%s)\n", nc.Name, nc.Source)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "Capacity:     %g CPU / %.2f GiB\n", nc.CPU, nc.Mem)
	fmt.Fprintf(w, "Reserved:     %g CPU / %.2f GiB\n", nc.SystemRequest.CPU, nc.SystemRequest.Mem)
	fmt.Fprintf(w, "Allocatable:  %g CPU / %.2f GiB\n", alloc.CPU, alloc.Mem)
	if nc.Architecture != "" {
		fmt.Fprintf(w, "Arch:         %s\n", nc.Architecture)
	}
	if nc.MaxPods > 0 {
		fmt.Fprintf(w, "Max pods:     %d\n", nc.MaxPods)
	}
	if nc.PricePerHour > 0 {
		fmt.Fprintf(w, "On-demand:    $%.4f/h ($%.0f/month)\n", nc.PricePerHour, nc.MonthlyCost())
	}
	if nc.SpotPricePerHour > 0 {
		fmt.Fprintf(w, "Spot:         $%.4f/h\n", nc.SpotPricePerHour)
	}
	fmt.Fprintf(w, "\n")
}
