package kube

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/guimove/capsim/internal/model"
)

// ErrNodeNotFound is returned when the named node does not exist.
var ErrNodeNotFound = errors.New("node not found")

const (
	bytesPerGiB  = 1 << 30
	podPageLimit = 500
)

// Inspector reads node shapes and pod counts from a live cluster.
type Inspector struct {
	client            kubernetes.Interface
	namespaces        []string // empty = all namespaces
	excludeNamespaces map[string]bool
	labelSelector     string
	logger            zerolog.Logger
}

// InspectorOption configures an Inspector.
type InspectorOption func(*Inspector)

// WithNamespaces restricts pod counting to the given namespaces.
func WithNamespaces(ns ...string) InspectorOption {
	return func(i *Inspector) { i.namespaces = ns }
}

// WithExcludedNamespaces skips pods in the given namespaces.
func WithExcludedNamespaces(ns ...string) InspectorOption {
	return func(i *Inspector) {
		for _, n := range ns {
			i.excludeNamespaces[n] = true
		}
	}
}

// WithLabelSelector restricts pod counting to matching pods.
func WithLabelSelector(selector string) InspectorOption {
	return func(i *Inspector) { i.labelSelector = selector }
}

// WithLogger sets the inspector logger.
func WithLogger(l zerolog.Logger) InspectorOption {
	return func(i *Inspector) { i.logger = l }
}

// NewInspector creates an inspector over client.
func NewInspector(client kubernetes.Interface, opts ...InspectorOption) *Inspector {
	i := &Inspector{
		client:            client,
		excludeNamespaces: make(map[string]bool),
		logger:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NodeCapacity reads a node's capacity. The system request is what the
// kubelet holds back, capacity minus allocatable.
func (i *Inspector) NodeCapacity(ctx context.Context, name string) (model.NodeCapacity, error) {
	node, err := i.client.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return model.NodeCapacity{}, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	if err != nil {
		return model.NodeCapacity{}, fmt.Errorf("getting node %s: %w", name, err)
	}

	capacity := resources(node.Status.Capacity)
	allocatable := capacity
	if len(node.Status.Allocatable) > 0 {
		allocatable = resources(node.Status.Allocatable)
	}

	reserved := capacity.Sub(allocatable)
	if reserved.CPU < 0 {
		reserved.CPU = 0
	}
	if reserved.Mem < 0 {
		reserved.Mem = 0
	}

	nc := model.NodeCapacity{
		Name:          node.Name,
		Source:        "kubernetes",
		CPU:           capacity.CPU,
		Mem:           capacity.Mem,
		SystemRequest: reserved,
		Architecture:  node.Status.NodeInfo.Architecture,
	}
	if pods, ok := node.Status.Allocatable[corev1.ResourcePods]; ok {
		nc.MaxPods = int(pods.Value())
	}
	return nc, nil
}

// resources converts a resource list to cores and GiB.
func resources(list corev1.ResourceList) model.Resources {
	var r model.Resources
	if q, ok := list[corev1.ResourceCPU]; ok {
		r.CPU = quantity(q)
	}
	if q, ok := list[corev1.ResourceMemory]; ok {
		r.Mem = quantity(q) / bytesPerGiB
	}
	return r
}

func quantity(q resource.Quantity) float64 {
	return q.AsApproximateFloat64()
}

// CountWorkloads counts running pods that are not owned by a DaemonSet.
func (i *Inspector) CountWorkloads(ctx context.Context) (int, error) {
	namespaces := i.namespaces
	if len(namespaces) == 0 {
		namespaces = []string{metav1.NamespaceAll}
	}

	var total, skipped int
	for _, ns := range namespaces {
		opts := metav1.ListOptions{
			LabelSelector: i.labelSelector,
			FieldSelector: "status.phase=Running",
			Limit:         podPageLimit,
		}
		for {
			pods, err := i.client.CoreV1().Pods(ns).List(ctx, opts)
			if err != nil {
				return 0, fmt.Errorf("listing pods in %q: %w", ns, err)
			}
			for idx := range pods.Items {
				if i.counts(&pods.Items[idx]) {
					total++
				} else {
					skipped++
				}
			}
			if pods.Continue == "" {
				break
			}
			opts.Continue = pods.Continue
		}
	}

	i.logger.Debug().Int("workloads", total).Int("skipped", skipped).Msg("counted cluster workloads")
	return total, nil
}

func (i *Inspector) counts(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning || i.excludeNamespaces[pod.Namespace] {
		return false
	}
	for _, ref := range pod.OwnerReferences {
		if ref.Kind == "DaemonSet" {
			return false
		}
	}
	return true
}
