package workgroup

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/feature"
	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/johnhoman/kubeflow-centraldashboard/binding"
	"github.com/johnhoman/kubeflow-centraldashboard/features"
	"github.com/johnhoman/kubeflow-centraldashboard/identity"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam"
)

const userIDHeader = "kubeflow-userid"

func newRouter(api *API) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(identity.Attach(userIDHeader, "accounts.google.com:"))
	api.Routes(router.Group("/api/workgroup"))
	return router
}

func serve(router http.Handler, method, target, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.Header.Set(userIDHeader, "accounts.google.com:"+user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Exists(t *testing.T) {
	flags := &feature.Flags{}
	flags.Enable(features.RegistrationFlow)

	cases := map[string]struct {
		bindings []binding.Binding
		user     string
		want     map[string]any
	}{
		"AnonymousWithoutBindings": {
			want: map[string]any{
				"hasAuth":                 false,
				"user":                    "anonymous",
				"hasWorkgroup":            false,
				"registrationFlowAllowed": true,
			},
		},
		"AnonymousWithBindings": {
			bindings: []binding.Binding{newBinding("groot@guardians.net", "groot", binding.RoleOwner)},
			want: map[string]any{
				"hasAuth":                 false,
				"user":                    "anonymous",
				"hasWorkgroup":            true,
				"registrationFlowAllowed": true,
			},
		},
		"OwnerOfAWorkgroup": {
			bindings: []binding.Binding{newBinding("starlord@guardians.net", "starlord", binding.RoleOwner)},
			user:     "starlord@guardians.net",
			want: map[string]any{
				"hasAuth":                 true,
				"user":                    "starlord",
				"hasWorkgroup":            true,
				"registrationFlowAllowed": true,
			},
		},
		"OnlyAContributor": {
			bindings: []binding.Binding{newBinding("starlord@guardians.net", "groot", binding.RoleContributor)},
			user:     "starlord@guardians.net",
			want: map[string]any{
				"hasAuth":                 true,
				"user":                    "starlord",
				"hasWorkgroup":            false,
				"registrationFlowAllowed": true,
			},
		},
	}

	for name, subtest := range cases {
		t.Run(name, func(t *testing.T) {
			api := NewAPI(newFakeProfiles(subtest.bindings...), &fakePlatform{}, WithFeatures(flags))
			w := serve(newRouter(api), http.MethodGet, "/api/workgroup/exists", subtest.user, "")
			qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
			qt.Assert(t, w.Body.String(), qt.JSONEquals, subtest.want)
		})
	}
}

func TestRoutes_RequireAuth(t *testing.T) {
	cases := map[string]struct {
		method string
		target string
		body   string
	}{
		"NukeSelf":          {method: http.MethodDelete, target: "/api/workgroup/nuke-self"},
		"GetAllNamespaces":  {method: http.MethodGet, target: "/api/workgroup/get-all-namespaces"},
		"GetContributors":   {method: http.MethodGet, target: "/api/workgroup/get-contributors/starlord"},
		"AddContributor":    {method: http.MethodPost, target: "/api/workgroup/add-contributor/starlord", body: `{"contributor":"groot@guardians.net"}`},
		"RemoveContributor": {method: http.MethodDelete, target: "/api/workgroup/remove-contributor/starlord", body: `{"contributor":"groot@guardians.net"}`},
	}

	for name, subtest := range cases {
		t.Run(name, func(t *testing.T) {
			profiles := newFakeProfiles()
			w := serve(newRouter(NewAPI(profiles, &fakePlatform{})), subtest.method, subtest.target, "", subtest.body)

			qt.Assert(t, w.Code, qt.Equals, http.StatusMethodNotAllowed)
			qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{
				"error": "Unable to ascertain user identity from request, cannot access route.",
			})
			qt.Assert(t, profiles.total(), qt.Equals, 0)
		})
	}
}

func TestRoutes_OpenToAnonymous(t *testing.T) {
	profiles := newFakeProfiles(newBinding("groot@guardians.net", "groot", binding.RoleOwner))
	router := newRouter(NewAPI(profiles, &fakePlatform{info: gke}))

	w := serve(router, http.MethodGet, "/api/workgroup/env-info", "", "")
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{
		"user": identity.AnonymousEmail,
		"platform": map[string]any{
			"kubeflowVersion": gke.KubeflowVersion,
			"provider":        gke.Provider,
			"providerName":    gke.ProviderName,
		},
		"namespaces": []any{
			map[string]any{"user": identity.AnonymousEmail, "namespace": "groot", "role": "contributor"},
		},
		"isClusterAdmin": true,
	})

	w = serve(router, http.MethodPost, "/api/workgroup/create", "", "")
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"message": "Created namespace anonymous"})
	qt.Assert(t, profiles.profiles, qt.HasLen, 1)
	qt.Assert(t, profiles.profiles[0].Spec.Owner.Name, qt.Equals, identity.AnonymousEmail)
}

func TestRoutes_Create(t *testing.T) {
	profiles := newFakeProfiles()
	router := newRouter(NewAPI(profiles, &fakePlatform{}))

	w := serve(router, http.MethodPost, "/api/workgroup/create", "starlord@guardians.net", `{"namespace":"guardians","user":"gamora@guardians.net"}`)
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"message": "Created namespace guardians"})
	qt.Assert(t, profiles.profiles[0].Name, qt.Equals, "guardians")
	qt.Assert(t, profiles.profiles[0].Spec.Owner.Name, qt.Equals, "gamora@guardians.net")

	profiles.errs["createProfile"] = &kfam.APIError{StatusCode: http.StatusConflict, Body: "profile exists"}
	w = serve(router, http.MethodPost, "/api/workgroup/create", "starlord@guardians.net", "")
	qt.Assert(t, w.Code, qt.Equals, http.StatusConflict)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"error": "profile exists"})
}

func TestRoutes_EnvInfoErrors(t *testing.T) {
	cases := map[string]struct {
		platformErr error
		kfamErr     error
		code        int
		message     string
	}{
		"DefaultsTo400": {
			platformErr: errors.New("boom"),
			code:        http.StatusBadRequest,
			message:     "Unexpected error getting environment info",
		},
		"KubernetesStatus": {
			platformErr: errors.Wrap(apierrors.NewForbidden(schema.GroupResource{Resource: "nodes"}, "", errors.New("rbac")), "failed to list nodes"),
			code:        http.StatusForbidden,
			message:     "Unexpected error getting environment info",
		},
		"ProfileControllerBody": {
			kfamErr: &kfam.APIError{StatusCode: http.StatusServiceUnavailable, Body: "kfam is down"},
			code:    http.StatusServiceUnavailable,
			message: "kfam is down",
		},
	}

	for name, subtest := range cases {
		t.Run(name, func(t *testing.T) {
			profiles := newFakeProfiles()
			if subtest.kfamErr != nil {
				profiles.errs["readBindings"] = subtest.kfamErr
			}
			router := newRouter(NewAPI(profiles, &fakePlatform{info: gke, err: subtest.platformErr}))

			w := serve(router, http.MethodGet, "/api/workgroup/env-info", "starlord@guardians.net", "")
			qt.Assert(t, w.Code, qt.Equals, subtest.code)
			qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"error": subtest.message})
		})
	}
}

func TestRoutes_NukeSelf(t *testing.T) {
	profiles := newFakeProfiles()
	router := newRouter(NewAPI(profiles, &fakePlatform{}))

	w := serve(router, http.MethodDelete, "/api/workgroup/nuke-self", "starlord@guardians.net", "")
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{
		"message":    "Removed namespace/profile starlord",
		"serverBody": map[string]any{"message": "deleted"},
	})
	// only the identity header is forwarded
	qt.Assert(t, profiles.headers, qt.DeepEquals, []http.Header{
		{"Kubeflow-Userid": {"accounts.google.com:starlord@guardians.net"}},
	})
}

func TestRoutes_GetAllNamespaces(t *testing.T) {
	profiles := newFakeProfiles(
		newBinding("groot@guardians.net", "starlord", binding.RoleContributor),
		newBinding("starlord@guardians.net", "starlord", binding.RoleOwner),
		newBinding("rocket@guardians.net", "rocket", binding.RoleOwner),
		newBinding("drax@guardians.net", "starlord", binding.RoleContributor),
		newBinding("mantis@guardians.net", "mantis", binding.RoleContributor),
	)
	router := newRouter(NewAPI(profiles, &fakePlatform{}))

	w := serve(router, http.MethodGet, "/api/workgroup/get-all-namespaces", "starlord@guardians.net", "")
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, []any{
		[]any{"starlord", "starlord@guardians.net", "groot@guardians.net, drax@guardians.net"},
		[]any{"rocket", "rocket@guardians.net", ""},
		[]any{"mantis", nil, "mantis@guardians.net"},
	})
}

func TestRoutes_Contributors(t *testing.T) {
	profiles := newFakeProfiles(
		newBinding("starlord@guardians.net", "starlord", binding.RoleOwner),
		newBinding("drax@guardians.net", "starlord", binding.RoleContributor),
	)
	router := newRouter(NewAPI(profiles, &fakePlatform{}))

	w := serve(router, http.MethodGet, "/api/workgroup/get-contributors/starlord", "starlord@guardians.net", "")
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, []string{"drax@guardians.net"})

	w = serve(router, http.MethodPost, "/api/workgroup/add-contributor/starlord", "starlord@guardians.net", `{"contributor":"groot@guardians.net"}`)
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, []string{"drax@guardians.net", "groot@guardians.net"})

	w = serve(router, http.MethodPost, "/api/workgroup/add-contributor/starlord", "starlord@guardians.net", `{"contributor":"not-an-email"}`)
	qt.Assert(t, w.Code, qt.Equals, http.StatusBadRequest)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"error": "Contributor doesn't look like a valid email address"})

	w = serve(router, http.MethodPost, "/api/workgroup/add-contributor/starlord", "starlord@guardians.net", `{}`)
	qt.Assert(t, w.Code, qt.Equals, http.StatusBadRequest)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"error": "Missing contributor field."})

	w = serve(router, http.MethodDelete, "/api/workgroup/remove-contributor/starlord", "starlord@guardians.net", `{"contributor":"drax@guardians.net"}`)
	qt.Assert(t, w.Code, qt.Equals, http.StatusOK)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, []string{"groot@guardians.net"})

	profiles.errs["deleteBinding"] = &kfam.APIError{StatusCode: http.StatusForbidden, Body: "not an owner"}
	w = serve(router, http.MethodDelete, "/api/workgroup/remove-contributor/starlord", "groot@guardians.net", `{"contributor":"drax@guardians.net"}`)
	qt.Assert(t, w.Code, qt.Equals, http.StatusForbidden)
	qt.Assert(t, w.Body.String(), qt.JSONEquals, map[string]any{"error": "not an owner"})
}
