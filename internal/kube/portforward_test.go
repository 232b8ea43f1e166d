package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes/fake"
)

func podWithPort(name string, phase corev1.PodPhase, portName string, port int32) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "monitoring",
			Labels:    map[string]string{"app": "prometheus"},
		},
		Spec: corev1.PodSpec{Containers: []corev1.Container{{
			Name:  "prometheus",
			Ports: []corev1.ContainerPort{{Name: portName, ContainerPort: port}},
		}}},
		Status: corev1.PodStatus{Phase: phase},
	}
}

func TestResolveTargetPort(t *testing.T) {
	pod := podWithPort("p", corev1.PodRunning, "web", 9091)

	tests := []struct {
		name string
		sp   corev1.ServicePort
		want int32
	}{
		{"numeric target", corev1.ServicePort{Port: 9090, TargetPort: intstr.FromInt32(10902)}, 10902},
		{"named target", corev1.ServicePort{Port: 9090, TargetPort: intstr.FromString("web")}, 9091},
		{"named target missing", corev1.ServicePort{Port: 9090, TargetPort: intstr.FromString("grpc")}, 9090},
		{"unset target", corev1.ServicePort{Port: 9090}, 9090},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTargetPort(tt.sp, pod))
		})
	}
}

func TestBackingPod(t *testing.T) {
	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "prometheus", Namespace: "monitoring"},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": "prometheus"},
			Ports: []corev1.ServicePort{{
				Name: "http", Port: 9090, Protocol: corev1.ProtocolTCP,
				TargetPort: intstr.FromString("web"),
			}},
		},
	}
	client := fake.NewSimpleClientset( //nolint:staticcheck // NewClientset requires generated apply configs
		service,
		podWithPort("prometheus-0", corev1.PodPending, "web", 9090),
		podWithPort("prometheus-1", corev1.PodRunning, "web", 9091),
	)
	ms := &MetricsService{Service: "prometheus", Namespace: "monitoring", Port: 9090}

	pod, port, err := backingPod(context.Background(), client, ms)
	require.NoError(t, err)
	assert.Equal(t, "prometheus-1", pod.Name)
	assert.Equal(t, int32(9091), port)
}

func TestBackingPod_Errors(t *testing.T) {
	noSelector := svc("prometheus", "monitoring", nil, tcpPort("http", 9090))

	t.Run("no selector", func(t *testing.T) {
		client := fake.NewSimpleClientset(noSelector) //nolint:staticcheck // NewClientset requires generated apply configs
		_, _, err := backingPod(context.Background(), client,
			&MetricsService{Service: "prometheus", Namespace: "monitoring", Port: 9090})
		assert.ErrorContains(t, err, "no pod selector")
	})

	t.Run("missing service", func(t *testing.T) {
		client := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
		_, _, err := backingPod(context.Background(), client,
			&MetricsService{Service: "prometheus", Namespace: "monitoring", Port: 9090})
		assert.Error(t, err)
	})

	t.Run("no running pod", func(t *testing.T) {
		s := noSelector.DeepCopy()
		s.Spec.Selector = map[string]string{"app": "prometheus"}
		client := fake.NewSimpleClientset( //nolint:staticcheck // NewClientset requires generated apply configs
			s, podWithPort("prometheus-0", corev1.PodPending, "web", 9090))
		_, _, err := backingPod(context.Background(), client,
			&MetricsService{Service: "prometheus", Namespace: "monitoring", Port: 9090})
		assert.ErrorContains(t, err, "no running pod")
	})
}
