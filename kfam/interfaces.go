package kfam

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/johnhoman/kubeflow-centraldashboard/apis/v1alpha1"
	"github.com/johnhoman/kubeflow-centraldashboard/binding"
)

// Client talks to the profile controller's access management API
type Client interface {
	ReadBindings(ctx context.Context, query BindingQuery) ([]binding.Binding, error)
	IsClusterAdmin(ctx context.Context, user string) (bool, error)
	CreateBinding(ctx context.Context, b binding.Binding, header http.Header) error
	DeleteBinding(ctx context.Context, b binding.Binding, header http.Header) error
	CreateProfile(ctx context.Context, profile *v1alpha1.Profile) error
	DeleteProfile(ctx context.Context, name string, header http.Header) (json.RawMessage, error)
}

// BindingQuery filters ReadBindings. Empty fields do not filter.
type BindingQuery struct {
	User      string
	Namespace string
	Role      binding.ClusterRole
}
