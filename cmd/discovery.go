package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	awspkg "github.com/guimove/capsim/internal/aws"
	"github.com/guimove/capsim/internal/kube"
	"github.com/guimove/capsim/internal/metrics"
	"github.com/guimove/capsim/internal/orchestrator"
)

var errNoMetricsSource = errors.New(
	"provide --prometheus-url, --calibration, or use --discover to auto-detect the metrics endpoint")

// capacitySource picks the node capacity source named by the config: an EC2
// instance type, a live Kubernetes node, or none when the node shape comes
// from flags.
func capacitySource(ctx context.Context) (orchestrator.CapacitySource, string, error) {
	switch {
	case cfg.Node.InstanceType != "":
		provider, err := awspkg.NewProvider(ctx, cfg.AWS.Region,
			awspkg.WithCache(cfg.AWS.CacheDir, cfg.AWS.CacheTTL),
			awspkg.WithLogger(log.Logger))
		if err != nil {
			return nil, "", fmt.Errorf("creating AWS provider: %w", err)
		}
		return provider, cfg.Node.InstanceType, nil

	case cfg.Node.KubeNode != "":
		inspector, err := newInspector()
		if err != nil {
			return nil, "", err
		}
		return inspector, cfg.Node.KubeNode, nil
	}
	return nil, "", nil
}

func newInspector() (*kube.Inspector, error) {
	client, err := kube.NewClient(cfg.Kubernetes.Kubeconfig, cfg.Kubernetes.Context)
	if err != nil {
		return nil, fmt.Errorf("connecting to Kubernetes: %w", err)
	}
	return kube.NewInspector(client.Clientset,
		kube.WithNamespaces(cfg.Kubernetes.Namespaces...),
		kube.WithExcludedNamespaces(cfg.Calibration.ExcludeNamespaces...),
		kube.WithLabelSelector(cfg.Kubernetes.LabelSelector),
		kube.WithLogger(log.Logger)), nil
}

// metricsSource creates a calibration source from, in order, a static
// calibration file, an explicit --prometheus-url, or a Prometheus-compatible
// service discovered in the cluster.
//
// When running outside the cluster, a discovered service is reached through
// a port-forward tunnel. The returned cleanup function must be called to
// close it (it is a no-op when no tunnel was created).
func metricsSource(ctx context.Context) (metrics.Source, func(), error) {
	noop := func() {}

	if cfg.Calibration.File != "" {
		return metrics.NewStaticSource(cfg.Calibration.File), noop, nil
	}

	// Explicit URL takes precedence
	if cfg.Prometheus.URL != "" {
		src, err := newPrometheusSource(ctx, cfg.Prometheus.URL)
		return src, noop, err
	}

	if !cfg.Kubernetes.Enabled {
		return nil, noop, errNoMetricsSource
	}

	client, err := kube.NewClient(cfg.Kubernetes.Kubeconfig, cfg.Kubernetes.Context)
	if err != nil {
		return nil, noop, fmt.Errorf("connecting to Kubernetes: %w", err)
	}

	svc, err := kube.DiscoverMetricsService(ctx, client.Clientset, cfg.Kubernetes.DiscoveryNamespace)
	if err != nil {
		return nil, noop, err
	}
	log.Info().Str("backend", svc.Backend).Str("service", svc.Namespace+"/"+svc.Service).
		Str("url", svc.URL).Msg("discovered metrics service")

	if client.InCluster {
		src, err := newPrometheusSource(ctx, svc.URL)
		return src, noop, err
	}

	// Running from a laptop: service DNS won't resolve.
	tunnel, err := kube.OpenTunnel(ctx, client, svc)
	if err != nil {
		return nil, noop, fmt.Errorf("starting port-forward: %w", err)
	}
	log.Info().Str("pod", tunnel.Pod).Str("url", tunnel.URL()).Msg("port-forwarding to metrics service")

	src, err := newPrometheusSource(ctx, tunnel.URL())
	if err != nil {
		tunnel.Close()
		return nil, noop, err
	}
	return src, tunnel.Close, nil
}

func newPrometheusSource(ctx context.Context, url string) (metrics.Source, error) {
	src, err := metrics.NewPrometheusSource(url,
		metrics.WithTimeout(cfg.Prometheus.Timeout),
		metrics.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	if err := src.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connecting to Prometheus: %w", err)
	}
	return src, nil
}

// countPods replaces the population size with the running pod count.
func countPods(ctx context.Context) error {
	inspector, err := newInspector()
	if err != nil {
		return err
	}
	n, err := inspector.CountWorkloads(ctx)
	if err != nil {
		return fmt.Errorf("counting pods: %w", err)
	}
	log.Info().Int("pods", n).Msg("population size taken from the cluster")
	cfg.Population.TotalCount = n
	return nil
}
