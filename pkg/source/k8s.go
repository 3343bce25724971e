package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	_ "k8s.io/client-go/plugin/pkg/client/auth"
)

// K8s treats a namespace+label selector as a LogSource whose members are
// the matching pods, one member per pod; each pod's logs are read from the
// single container named when the source was built.
type K8s struct {
	clientset     *kubernetes.Clientset
	namespace     string
	labelSelector string
	container     string
}

// NewK8s builds a Kubernetes log source from a kubeconfig path (empty
// uses the client-go default loading rules).
func NewK8s(kubeconfig, namespace, labelSelector, container string) (*K8s, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("source: load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("source: build kubernetes client: %w", err)
	}
	return &K8s{clientset: clientset, namespace: namespace, labelSelector: labelSelector, container: container}, nil
}

func (k *K8s) Kind() Kind   { return KindK8s }
func (k *K8s) Path() string { return k.namespace }

func (k *K8s) Members() ([]Member, error) {
	ctx := context.Background()
	pods, err := k.clientset.CoreV1().Pods(k.namespace).List(ctx, metav1.ListOptions{LabelSelector: k.labelSelector})
	if err != nil {
		return nil, fmt.Errorf("source: list pods in %s: %w", k.namespace, err)
	}
	var members []Member
	for _, p := range pods.Items {
		members = append(members, Member{
			Path:       p.Name,
			PseudoPath: k.namespace + "/" + p.Name,
			ModTime:    p.CreationTimestamp.Time,
		})
	}
	return members, nil
}

func (k *K8s) Open(m Member) (io.ReadCloser, error) {
	ctx := context.Background()
	opts := &corev1.PodLogOptions{Container: k.container, Timestamps: true}
	req := k.clientset.CoreV1().Pods(k.namespace).GetLogs(m.Path, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: stream logs for pod %s: %w", m.Path, err)
	}
	defer stream.Close()

	var buf bytes.Buffer
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		buf.Write(sc.Bytes())
		buf.WriteByte('\n')
	}
	return io.NopCloser(&buf), sc.Err()
}
