package workgroup

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johnhoman/kubeflow-centraldashboard/apis/v1alpha1"
	"github.com/johnhoman/kubeflow-centraldashboard/binding"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam"
	"github.com/johnhoman/kubeflow-centraldashboard/kube"
)

type fakeProfiles struct {
	mu       sync.Mutex
	bindings []binding.Binding
	admins   map[string]bool
	profiles []*v1alpha1.Profile
	errs     map[string]error
	calls    map[string]int
	headers  []http.Header
}

func newFakeProfiles(bindings ...binding.Binding) *fakeProfiles {
	return &fakeProfiles{
		bindings: bindings,
		admins:   map[string]bool{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeProfiles) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errs[op]
}

func (f *fakeProfiles) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeProfiles) ReadBindings(_ context.Context, query kfam.BindingQuery) ([]binding.Binding, error) {
	if err := f.call("readBindings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]binding.Binding, 0)
	for _, b := range f.bindings {
		if query.User != "" && b.User.Name != query.User {
			continue
		}
		if query.Namespace != "" && b.ReferredNamespace != query.Namespace {
			continue
		}
		if query.Role != "" && b.RoleRef.Name != string(query.Role) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeProfiles) IsClusterAdmin(_ context.Context, user string) (bool, error) {
	if err := f.call("isClusterAdmin"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[user], nil
}

func (f *fakeProfiles) CreateBinding(_ context.Context, b binding.Binding, header http.Header) error {
	if err := f.call("createBinding"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, header)
	f.bindings = append(f.bindings, b)
	return nil
}

func (f *fakeProfiles) DeleteBinding(_ context.Context, b binding.Binding, header http.Header) error {
	if err := f.call("deleteBinding"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, header)
	kept := f.bindings[:0]
	for _, existing := range f.bindings {
		if existing.User.Name == b.User.Name && existing.ReferredNamespace == b.ReferredNamespace {
			continue
		}
		kept = append(kept, existing)
	}
	f.bindings = kept
	return nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, profile *v1alpha1.Profile) error {
	if err := f.call("createProfile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	return nil
}

func (f *fakeProfiles) DeleteProfile(_ context.Context, _ string, header http.Header) (json.RawMessage, error) {
	if err := f.call("deleteProfile"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, header)
	return json.RawMessage(`{"message":"deleted"}`), nil
}

var _ kfam.Client = &fakeProfiles{}

type fakePlatform struct {
	calls int32
	info  kube.PlatformInfo
	err   error
	// release, when set, blocks every fetch until it is closed. entered,
	// when set, is closed once the first fetch starts.
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (f *fakePlatform) PlatformInfo(ctx context.Context) (kube.PlatformInfo, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.entered != nil {
		f.once.Do(func() { close(f.entered) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return kube.PlatformInfo{}, ctx.Err()
		}
	}
	if f.err != nil {
		return kube.PlatformInfo{}, f.err
	}
	return f.info, nil
}

func (f *fakePlatform) count() int {
	return int(atomic.LoadInt32(&f.calls))
}

// waitForCallers blocks until n callers are waiting on the shared
// platform fetch.
func waitForCallers(t *testing.T, api *API, n int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&api.platform.waiting) != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d callers, have %d", n, atomic.LoadInt32(&api.platform.waiting))
		}
		time.Sleep(time.Millisecond)
	}
}

func newBinding(user, namespace string, role binding.Role) binding.Binding {
	return binding.ToBinding(binding.Simple{User: user, Namespace: namespace, Role: role})
}

var gke = kube.PlatformInfo{
	KubeflowVersion: "1.7.0",
	Provider:        "gce://kubeflow-dev/us-central1-a/node-1",
	ProviderName:    "gce",
}
