package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
)

type Interface interface {
	Namespaces(ctx context.Context) ([]corev1.Namespace, error)
	Nodes(ctx context.Context) ([]corev1.Node, error)
	ConfigMap(ctx context.Context) (*corev1.ConfigMap, error)
	EventsForNamespace(ctx context.Context, namespace string) ([]corev1.Event, error)
	Provider(ctx context.Context) (string, error)
	KubeflowVersion(ctx context.Context) (string, error)
	PlatformInfo(ctx context.Context) (PlatformInfo, error)
}

var _ Interface = &Service{}
