// Package kubemock provides fake Kubernetes clients seeded with a small
// Kubeflow installation. It backs the dashboard's --mock-kubernetes mode
// and the tests of packages that read the cluster.
package kubemock

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/johnhoman/kubeflow-centraldashboard/kube"
)

const (
	Provider        = "gce://kubeflow-dev/us-central1-a/gke-kubeflow-node-1"
	KubeflowVersion = "1.7.0"
	UserNamespace   = "kubeflow-user-example-com"

	Links    = `{"menuLinks":[{"link":"/jupyter/","text":"Notebooks","icon":"book"}],"externalLinks":[],"quickLinks":[],"documentationItems":[]}`
	Settings = `{"DASHBOARD_FORCE_IFRAME":true}`
)

// Clientset returns a fake typed clientset holding objs
func Clientset(objs ...runtime.Object) *fake.Clientset {
	return fake.NewSimpleClientset(objs...)
}

// Dynamic returns a fake dynamic client that can list applications and
// holds objs.
func Dynamic(objs ...runtime.Object) *dynamicfake.FakeDynamicClient {
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			kube.ApplicationResource: "ApplicationList",
		},
		objs...,
	)
}

// Application returns an app.k8s.io Application with the given descriptor
func Application(namespace, name, kind, version string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{Object: map[string]interface{}{
		"spec": map[string]interface{}{
			"descriptor": map[string]interface{}{
				"type":    kind,
				"version": version,
			},
		},
	}}
	u.SetAPIVersion(kube.ApplicationResource.GroupVersion().String())
	u.SetKind("Application")
	u.SetNamespace(namespace)
	u.SetName(name)
	return u
}

// Objects returns the typed objects of a small Kubeflow installation whose
// control plane runs in namespace.
func Objects(namespace string) []runtime.Object {
	return []runtime.Object{
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: UserNamespace}},
		&corev1.Node{
			ObjectMeta: metav1.ObjectMeta{Name: "gke-kubeflow-node-1"},
			Spec:       corev1.NodeSpec{ProviderID: Provider},
		},
		&corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      kube.DefaultDashboardName,
				Namespace: namespace,
			},
			Data: map[string]string{
				"links":    Links,
				"settings": Settings,
			},
		},
		&corev1.Event{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "notebook.1",
				Namespace: UserNamespace,
			},
			InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "notebook-0", Namespace: UserNamespace},
			Reason:         "Scheduled",
			Message:        "Successfully assigned notebook-0",
			Type:           corev1.EventTypeNormal,
		},
	}
}

// NewService returns a kube.Service backed by seeded fake clients
func NewService(namespace string, opts ...kube.Option) *kube.Service {
	opts = append([]kube.Option{kube.WithNamespace(namespace)}, opts...)
	return kube.NewService(
		Clientset(Objects(namespace)...),
		Dynamic(Application(namespace, "kubeflow", "Kubeflow", KubeflowVersion)),
		opts...,
	)
}
