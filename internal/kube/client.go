package kube

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client bundles a clientset with the REST config it was built from, which
// port-forwarding needs.
type Client struct {
	Clientset kubernetes.Interface
	REST      *rest.Config
	Context   string // kubeconfig context, empty in-cluster
	InCluster bool
}

// NewClient creates a Kubernetes client using the following resolution order:
// 1. Explicit kubeconfig path
// 2. KUBECONFIG environment variable
// 3. ~/.kube/config
// 4. In-cluster config (when running as a pod)
func NewClient(kubeconfig, kubeContext string) (*Client, error) {
	restConfig, current, inCluster, err := buildConfig(kubeconfig, kubeContext)
	if err != nil {
		return nil, fmt.Errorf("building kubernetes config: %w", err)
	}

	cs, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}

	return &Client{
		Clientset: cs,
		REST:      restConfig,
		Context:   current,
		InCluster: inCluster,
	}, nil
}

func kubeconfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".kube", "config")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func buildConfig(kubeconfig, kubeContext string) (*rest.Config, string, bool, error) {
	path := kubeconfigPath(kubeconfig)
	if path == "" {
		restConfig, err := rest.InClusterConfig()
		if err != nil {
			return nil, "", false, fmt.Errorf("no kubeconfig found and not running in-cluster: %w", err)
		}
		return restConfig, "", true, nil
	}

	rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	raw, err := clientConfig.RawConfig()
	if err != nil {
		return nil, "", false, err
	}
	current := raw.CurrentContext
	if kubeContext != "" {
		current = kubeContext
	}

	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, "", false, err
	}
	return restConfig, current, false, nil
}
