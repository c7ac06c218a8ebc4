package kube

import (
	"context"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

const (
	errListNamespaces   = "failed to list namespaces"
	errListNodes        = "failed to list nodes"
	errListApplications = "failed to list applications"
	errFmtGetConfigMap  = "failed to read config map %s/%s"
	errFmtListEvents    = "failed to list events in %s"

	// DefaultProvider is reported when no node carries a provider id
	DefaultProvider = "other://"
	// UnknownVersion is reported when no Kubeflow application is installed
	UnknownVersion = "unknown"

	DefaultNamespace     = "kubeflow"
	DefaultDashboardName = "centraldashboard-config"
)

// ApplicationResource is the custom resource describing installed
// applications. The Kubeflow version is read from it.
var ApplicationResource = schema.GroupVersionResource{
	Group:    "app.k8s.io",
	Version:  "v1beta1",
	Resource: "applications",
}

// PlatformInfo describes the cluster the dashboard runs on
type PlatformInfo struct {
	KubeflowVersion string `json:"kubeflowVersion"`
	Provider        string `json:"provider"`
	ProviderName    string `json:"providerName"`
}

type Option func(s *Service)

// WithNamespace sets the namespace the dashboard config map and the
// Kubeflow application live in.
func WithNamespace(namespace string) Option {
	return func(s *Service) {
		s.namespace = namespace
	}
}

func WithDashboardConfigMap(name string) Option {
	return func(s *Service) {
		s.configMap = name
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(clientset kubernetes.Interface, dyn dynamic.Interface, opts ...Option) *Service {
	s := &Service{
		clientset: clientset,
		dynamic:   dyn,
		namespace: DefaultNamespace,
		configMap: DefaultDashboardName,
		logger:    logging.NewNopLogger(),
	}
	for _, f := range opts {
		f(s)
	}
	return s
}

// Service reads the cluster state the dashboard needs. Every method
// returns read failures to the caller.
type Service struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	logger    logging.Logger

	// namespace holds the dashboard config map and the Kubeflow application
	namespace string
	configMap string
}

// Namespaces lists every namespace in the cluster
func (s *Service) Namespaces(ctx context.Context) ([]corev1.Namespace, error) {
	list, err := s.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		s.logger.Debug(errListNamespaces, "error", err.Error())
		return nil, errors.Wrap(err, errListNamespaces)
	}
	return list.Items, nil
}

func (s *Service) Nodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := s.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		s.logger.Debug(errListNodes, "error", err.Error())
		return nil, errors.Wrap(err, errListNodes)
	}
	return list.Items, nil
}

// ConfigMap reads the dashboard config map
func (s *Service) ConfigMap(ctx context.Context) (*corev1.ConfigMap, error) {
	cm, err := s.clientset.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.configMap, metav1.GetOptions{})
	if err != nil {
		s.logger.Debug("failed to read dashboard config map", "error", err.Error())
		return nil, errors.Wrapf(err, errFmtGetConfigMap, s.namespace, s.configMap)
	}
	return cm, nil
}

// EventsForNamespace lists the events recorded in namespace
func (s *Service) EventsForNamespace(ctx context.Context, namespace string) ([]corev1.Event, error) {
	list, err := s.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		s.logger.Debug("failed to list events", "namespace", namespace, "error", err.Error())
		return nil, errors.Wrapf(err, errFmtListEvents, namespace)
	}
	return list.Items, nil
}

// Provider returns the first provider id found on a node, or
// DefaultProvider when no node has one.
func (s *Service) Provider(ctx context.Context) (string, error) {
	nodes, err := s.Nodes(ctx)
	if err != nil {
		return "", err
	}
	for _, node := range nodes {
		if node.Spec.ProviderID != "" {
			return node.Spec.ProviderID, nil
		}
	}
	return DefaultProvider, nil
}

// KubeflowVersion returns the version of the application whose descriptor
// type is "kubeflow". UnknownVersion is returned when there is no such
// application or the application resource is not installed.
func (s *Service) KubeflowVersion(ctx context.Context) (string, error) {
	list, err := s.dynamic.Resource(ApplicationResource).Namespace(s.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return UnknownVersion, nil
		}
		s.logger.Debug(errListApplications, "error", err.Error())
		return "", errors.Wrap(err, errListApplications)
	}
	for _, item := range list.Items {
		kind, _, _ := unstructured.NestedString(item.Object, "spec", "descriptor", "type")
		if !strings.EqualFold(kind, "kubeflow") {
			continue
		}
		version, _, _ := unstructured.NestedString(item.Object, "spec", "descriptor", "version")
		return version, nil
	}
	return UnknownVersion, nil
}

// PlatformInfo reads the provider and the Kubeflow version concurrently
func (s *Service) PlatformInfo(ctx context.Context) (PlatformInfo, error) {
	var provider, version string
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		provider, err = s.Provider(ctx)
		return err
	})
	g.Go(func() (err error) {
		version, err = s.KubeflowVersion(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Info("failed to read platform info", "error", err.Error())
		return PlatformInfo{}, err
	}
	name, _, _ := strings.Cut(provider, ":")
	return PlatformInfo{
		KubeflowVersion: version,
		Provider:        provider,
		ProviderName:    name,
	}, nil
}
