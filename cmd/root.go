package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/guimove/capsim/internal/config"
)

var (
	cfgFile  string
	cfg      config.Config
	defaults = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "capsim",
	Short: "Monte Carlo capacity simulator for bin-packed workloads",
	Long: `capsim estimates how many nodes a population of mostly idle workloads
needs, and how often nodes run out of memory or CPU, by packing the
population onto nodes many times in random order.

Population and node parameters come from flags, a config file, or live
sources: Prometheus for workload footprints, EC2 for instance shapes and
prices, and Kubernetes for node shapes and pod counts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd.Flags())
		if err := loadConfig(); err != nil {
			return err
		}
		setupLogger()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: capsim.yaml)")
	pf.String("log-level", defaults.Log.Level, "log level: trace, debug, info, warn, error")
	pf.String("log-format", defaults.Log.Format, "log format: console, json")
	pf.StringP("output", "o", defaults.Output.Format, "output format: table, json, markdown, csv")
	pf.String("metrics-file", "", "write run metrics in Prometheus text format to this file")

	pf.String("region", defaults.AWS.Region, "AWS region")
	pf.String("prometheus-url", "", "Prometheus/Thanos endpoint URL")
	pf.String("kubeconfig", "", "path to kubeconfig file")
	pf.String("kube-context", "", "Kubernetes context name")
	pf.BoolP("discover", "d", false, "auto-discover the Prometheus endpoint from Kubernetes")
	pf.String("discovery-namespace", "", "limit service discovery to a namespace")
}

// flagKeys maps flag names to config keys. Flags are bound for the command
// being executed only, so commands can share flag names.
var flagKeys = map[string]string{
	"log-level":           "log.level",
	"log-format":          "log.format",
	"output":              "output.format",
	"metrics-file":        "output.metrics_file",
	"region":              "aws.region",
	"prometheus-url":      "prometheus.url",
	"kubeconfig":          "kubernetes.kubeconfig",
	"kube-context":        "kubernetes.context",
	"discover":            "kubernetes.enabled",
	"discovery-namespace": "kubernetes.discovery_namespace",

	"total-count":        "population.total_count",
	"active-fraction":    "population.active_fraction",
	"active-hours":       "population.active_hours_per_day",
	"workday-hours":      "population.workday_hours",
	"max-cpu":            "node.max_cpu",
	"max-mem":            "node.max_mem",
	"system-cpu-request": "node.system_cpu_request",
	"system-mem-request": "node.system_mem_request",
	"system-cpu-usage":   "node.system_cpu_usage",
	"system-mem-usage":   "node.system_mem_usage",
	"instance-type":      "node.instance_type",
	"kube-node":          "node.kube_node",
	"price-per-hour":     "node.price_per_hour",
	"trials":             "simulation.trials",
	"seed":               "simulation.seed",
	"parallelism":        "simulation.parallelism",
	"mode":               "simulation.mode",
	"partition-nodes":    "simulation.partition_nodes",
	"breakdown":          "simulation.breakdown",
	"timeout":            "simulation.timeout",
	"calibration":        "calibration.file",
	"window":             "calibration.window",
	"step":               "calibration.step",
	"percentile":         "calibration.percentile",
	"active-threshold":   "calibration.active_cpu_threshold",
	"exclude-namespaces": "calibration.exclude_namespaces",
	"namespaces":         "kubernetes.namespaces",
	"label-selector":     "kubernetes.label_selector",
	"spot":               "aws.spot_pricing",
}

func bindFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = viper.BindPFlag(key, f)
		}
	})
}

func loadConfig() error {
	// Start with defaults
	cfg = config.Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("capsim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.capsim")
	}

	// Environment variable overrides, e.g. CAPSIM_SIMULATION_TRIALS
	viper.SetEnvPrefix("CAPSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (not an error if missing)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	return cfg.Validate()
}

func setupLogger() {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
