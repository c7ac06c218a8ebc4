// Package workgroup composes the profile controller and the cluster into
// the workgroup views served to the dashboard.
package workgroup

import (
	"context"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/feature"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"golang.org/x/sync/errgroup"

	"github.com/johnhoman/kubeflow-centraldashboard/binding"
	"github.com/johnhoman/kubeflow-centraldashboard/features"
	"github.com/johnhoman/kubeflow-centraldashboard/identity"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam"
	"github.com/johnhoman/kubeflow-centraldashboard/kube"
)

// EnvironmentInfo is what the dashboard needs to render for a user
type EnvironmentInfo struct {
	User           string            `json:"user"`
	Platform       kube.PlatformInfo `json:"platform"`
	Namespaces     []binding.Simple  `json:"namespaces"`
	IsClusterAdmin bool              `json:"isClusterAdmin"`
}

// Info is the set of workgroups a user belongs to
type Info struct {
	IsClusterAdmin bool             `json:"isClusterAdmin"`
	Namespaces     []binding.Simple `json:"namespaces"`
}

type Option func(a *API)

func WithLogger(logger logging.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

func WithFeatures(flags *feature.Flags) Option {
	return func(a *API) {
		a.features = flags
	}
}

// WithPlatformTTL sets how long platform info is reused. Zero or less
// keeps the first successful result forever.
func WithPlatformTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.platform.ttl = ttl
	}
}

func NewAPI(profiles kfam.Client, platform PlatformSource, opts ...Option) *API {
	a := &API{
		profiles: profiles,
		platform: newPlatformCache(platform, DefaultPlatformTTL),
		features: &feature.Flags{},
		logger:   logging.NewNopLogger(),
	}
	for _, f := range opts {
		f(a)
	}
	return a
}

type API struct {
	profiles kfam.Client
	platform *platformCache
	features *feature.Flags
	logger   logging.Logger
}

func (a *API) registrationFlowAllowed() bool {
	return a.features.Enabled(features.RegistrationFlow)
}

func (a *API) PlatformInfo(ctx context.Context) (kube.PlatformInfo, error) {
	return a.platform.Get(ctx)
}

// ProfileAwareEnv builds the environment of an authenticated user
func (a *API) ProfileAwareEnv(ctx context.Context, user identity.User) (EnvironmentInfo, error) {
	var platform kube.PlatformInfo
	var info Info

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		platform, err = a.PlatformInfo(ctx)
		return err
	})
	g.Go(func() (err error) {
		info, err = a.WorkgroupInfo(ctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return EnvironmentInfo{}, err
	}
	return EnvironmentInfo{
		User:           user.Email,
		Platform:       platform,
		Namespaces:     info.Namespaces,
		IsClusterAdmin: info.IsClusterAdmin,
	}, nil
}

// BasicEnvironment builds the environment for clusters that do not
// identify their users. Every namespace is listed and the caller is
// treated as a cluster admin.
func (a *API) BasicEnvironment(ctx context.Context, user identity.User) (EnvironmentInfo, error) {
	var platform kube.PlatformInfo
	var namespaces []binding.Simple

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		platform, err = a.PlatformInfo(ctx)
		return err
	})
	g.Go(func() (err error) {
		namespaces, err = a.AllWorkgroups(ctx, user.Email)
		return err
	})
	if err := g.Wait(); err != nil {
		return EnvironmentInfo{}, err
	}
	return EnvironmentInfo{
		User:           user.Email,
		Platform:       platform,
		Namespaces:     namespaces,
		IsClusterAdmin: true,
	}, nil
}

func (a *API) WorkgroupInfo(ctx context.Context, user identity.User) (Info, error) {
	var admin bool
	var bindings []binding.Binding

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		admin, err = a.profiles.IsClusterAdmin(ctx, user.Email)
		return err
	})
	g.Go(func() (err error) {
		bindings, err = a.profiles.ReadBindings(ctx, kfam.BindingQuery{User: user.Email})
		return err
	})
	if err := g.Wait(); err != nil {
		return Info{}, err
	}
	return Info{
		IsClusterAdmin: admin,
		Namespaces:     binding.ToSimple(bindings),
	}, nil
}

// AllWorkgroups lists every namespace known to the profile controller
// once, as a contributor binding for fakeUser
func (a *API) AllWorkgroups(ctx context.Context, fakeUser string) ([]binding.Simple, error) {
	bindings, err := a.profiles.ReadBindings(ctx, kfam.BindingQuery{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(bindings))
	out := make([]binding.Simple, 0, len(bindings))
	for _, b := range bindings {
		if _, ok := seen[b.ReferredNamespace]; ok {
			continue
		}
		seen[b.ReferredNamespace] = struct{}{}
		out = append(out, binding.Simple{
			User:      fakeUser,
			Namespace: b.ReferredNamespace,
			Role:      binding.RoleContributor,
		})
	}
	return out, nil
}

// Contributors returns the users with the contributor role in namespace
func (a *API) Contributors(ctx context.Context, namespace string) ([]string, error) {
	bindings, err := a.profiles.ReadBindings(ctx, kfam.BindingQuery{Namespace: namespace})
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(bindings))
	for _, b := range binding.ToSimple(bindings) {
		if b.Role == binding.RoleContributor {
			users = append(users, b.User)
		}
	}
	return users, nil
}
