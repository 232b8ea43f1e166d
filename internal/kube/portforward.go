package kube

import (
	"context"
	"fmt"
	"io"
	"net/http"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"
)

// Tunnel is an open port-forward to a pod behind a metrics service.
type Tunnel struct {
	LocalPort int32
	Pod       string
	stop      chan struct{}
}

// URL returns the local endpoint of the tunnel.
func (t *Tunnel) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", t.LocalPort)
}

// Close terminates the tunnel.
func (t *Tunnel) Close() {
	close(t.stop)
}

// OpenTunnel port-forwards to a running pod backing svc. It resolves the
// service's target port, which may be named, from the pod's container ports.
func OpenTunnel(ctx context.Context, c *Client, svc *MetricsService) (*Tunnel, error) {
	pod, port, err := backingPod(ctx, c.Clientset, svc)
	if err != nil {
		return nil, err
	}

	t, err := forward(c.REST, c.Clientset, pod.Name, svc.Namespace, port)
	if err != nil {
		return nil, err
	}
	t.Pod = pod.Name
	return t, nil
}

// backingPod finds a running pod selected by svc and the container port its
// service port targets.
func backingPod(ctx context.Context, cs kubernetes.Interface, ms *MetricsService) (*corev1.Pod, int32, error) {
	svc, err := cs.CoreV1().Services(ms.Namespace).Get(ctx, ms.Service, metav1.GetOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("getting service %s/%s: %w", ms.Namespace, ms.Service, err)
	}
	if len(svc.Spec.Selector) == 0 {
		return nil, 0, fmt.Errorf("service %s/%s has no pod selector", ms.Namespace, ms.Service)
	}

	var sp *corev1.ServicePort
	for i := range svc.Spec.Ports {
		if svc.Spec.Ports[i].Port == ms.Port {
			sp = &svc.Spec.Ports[i]
			break
		}
	}
	if sp == nil {
		return nil, 0, fmt.Errorf("service %s/%s has no port %d", ms.Namespace, ms.Service, ms.Port)
	}

	pods, err := cs.CoreV1().Pods(ms.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: metav1.FormatLabelSelector(&metav1.LabelSelector{MatchLabels: svc.Spec.Selector}),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing pods for service %s/%s: %w", ms.Namespace, ms.Service, err)
	}
	for i := range pods.Items {
		if pods.Items[i].Status.Phase == corev1.PodRunning {
			pod := &pods.Items[i]
			return pod, resolveTargetPort(*sp, pod), nil
		}
	}
	return nil, 0, fmt.Errorf("no running pod found for service %s/%s", ms.Namespace, ms.Service)
}

// resolveTargetPort resolves a ServicePort's targetPort to a numeric port.
// A numeric target is used as is, a named one is looked up in the pod's
// containers, and an unset one defaults to the service port.
func resolveTargetPort(sp corev1.ServicePort, pod *corev1.Pod) int32 {
	tp := sp.TargetPort
	if tp.IntValue() != 0 {
		return int32(tp.IntValue())
	}

	if name := tp.String(); name != "" && name != "0" {
		for _, c := range pod.Spec.Containers {
			for _, cp := range c.Ports {
				if cp.Name == name {
					return cp.ContainerPort
				}
			}
		}
	}
	return sp.Port
}

// forward opens a port-forward to podPort on a random local port.
func forward(restConfig *rest.Config, cs kubernetes.Interface, podName, namespace string, podPort int32) (*Tunnel, error) {
	transport, upgrader, err := spdy.RoundTripperFor(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating SPDY round-tripper: %w", err)
	}

	reqURL := cs.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(podName).
		SubResource("portforward").
		URL()
	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, reqURL)

	stop := make(chan struct{}, 1)
	ready := make(chan struct{})
	fw, err := portforward.New(dialer, []string{fmt.Sprintf("0:%d", podPort)}, stop, ready, io.Discard, io.Discard)
	if err != nil {
		return nil, fmt.Errorf("creating port-forwarder: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- fw.ForwardPorts() }()

	select {
	case <-ready:
	case err := <-errCh:
		return nil, fmt.Errorf("port-forward failed: %w", err)
	}

	ports, err := fw.GetPorts()
	if err != nil {
		close(stop)
		return nil, fmt.Errorf("getting forwarded ports: %w", err)
	}
	return &Tunnel{LocalPort: int32(ports[0].Local), stop: stop}, nil
}
