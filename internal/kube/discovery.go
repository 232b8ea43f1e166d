package kube

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// ErrNoMetricsService is returned when no Prometheus-compatible service is found.
var ErrNoMetricsService = errors.New("no Prometheus-compatible service found in the cluster; " +
	"set prometheus.url to specify the endpoint manually")

// MetricsService is a Prometheus-compatible query endpoint found in the cluster.
type MetricsService struct {
	URL       string // in-cluster service URL
	Backend   string // "prometheus", "thanos", "cortex", "victoria-metrics", "mimir"
	Service   string
	Namespace string
	Port      int32
}

// backendSelectors lists well-known label selectors, best query frontends first.
var backendSelectors = []struct {
	backend  string
	selector string
}{
	{"thanos", "app.kubernetes.io/component=query,app.kubernetes.io/name=thanos"},
	{"thanos", "app.kubernetes.io/name=thanos-query"},
	{"thanos", "app=thanos-query"},
	{"thanos", "app=thanos-querier"},
	{"victoria-metrics", "app.kubernetes.io/name=vmsingle"},
	{"victoria-metrics", "app.kubernetes.io/name=victoria-metrics-single"},
	{"victoria-metrics", "app.kubernetes.io/name=vmselect"},
	{"victoria-metrics", "app=vmselect"},
	{"mimir", "app.kubernetes.io/name=mimir,app.kubernetes.io/component=query-frontend"},
	{"cortex", "app.kubernetes.io/name=cortex,app.kubernetes.io/component=query-frontend"},
	{"prometheus", "app=kube-prometheus-stack-prometheus"},
	{"prometheus", "app=prometheus,component=server"},
	{"prometheus", "app=prometheus-server"},
	{"prometheus", "app=prometheus-operator-prometheus"},
	{"prometheus", "app=prometheus-prometheus"},
	{"prometheus", "app.kubernetes.io/name=prometheus"},
}

// DiscoverMetricsService returns the first service matching a well-known
// selector. An empty namespace searches all namespaces.
func DiscoverMetricsService(ctx context.Context, cs kubernetes.Interface, namespace string) (*MetricsService, error) {
	for _, c := range backendSelectors {
		list, err := cs.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{
			LabelSelector: c.selector,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		for _, svc := range list.Items {
			port := servicePort(svc)
			if port == 0 {
				continue
			}
			return &MetricsService{
				URL:       fmt.Sprintf("http://%s.%s.svc:%d", svc.Name, svc.Namespace, port),
				Backend:   c.backend,
				Service:   svc.Name,
				Namespace: svc.Namespace,
				Port:      port,
			}, nil
		}
	}
	return nil, ErrNoMetricsService
}

// servicePort returns the best port from a Service, preferring well-known
// HTTP port names, then the first TCP port.
func servicePort(svc corev1.Service) int32 {
	for _, p := range svc.Spec.Ports {
		switch p.Name {
		case "http", "web", "http-web":
			return p.Port
		}
	}
	for _, p := range svc.Spec.Ports {
		if p.Protocol == corev1.ProtocolTCP || p.Protocol == "" {
			return p.Port
		}
	}
	return 0
}
