package binding

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func newBinding(user, namespace, role string) Binding {
	return Binding{
		User:              &rbacv1.Subject{Kind: rbacv1.UserKind, Name: user},
		ReferredNamespace: namespace,
		RoleRef:           &rbacv1.RoleRef{Kind: "ClusterRole", Name: role},
	}
}

func TestToSimple(t *testing.T) {

	cases := map[string]struct {
		bindings []Binding
		want     []Simple
	}{
		"Nil": {
			want: []Simple{},
		},
		"AdminIsOwner": {
			bindings: []Binding{newBinding("starlord@guardians.net", "starlord", "admin")},
			want:     []Simple{{User: "starlord@guardians.net", Namespace: "starlord", Role: RoleOwner}},
		},
		"EditIsContributor": {
			bindings: []Binding{newBinding("groot@guardians.net", "starlord", "edit")},
			want:     []Simple{{User: "groot@guardians.net", Namespace: "starlord", Role: RoleContributor}},
		},
		"OwnerIsAdmin": {
			bindings: []Binding{newBinding("yondu@ravagers.net", "starlord", "owner")},
			want:     []Simple{{User: "yondu@ravagers.net", Namespace: "starlord", Role: RoleAdmin}},
		},
		"ContributorIsEdit": {
			bindings: []Binding{newBinding("kraglin@ravagers.net", "starlord", "contributor")},
			want:     []Simple{{User: "kraglin@ravagers.net", Namespace: "starlord", Role: RoleEdit}},
		},
		"DropsUnknownRoles": {
			bindings: []Binding{
				newBinding("groot@guardians.net", "starlord", "view"),
				newBinding("rocket@guardians.net", "starlord", "edit"),
			},
			want: []Simple{{User: "rocket@guardians.net", Namespace: "starlord", Role: RoleContributor}},
		},
		"DropsIncompleteBindings": {
			bindings: []Binding{{ReferredNamespace: "starlord"}},
			want:     []Simple{},
		},
	}

	for name, subtest := range cases {
		t.Run(name, func(t *testing.T) {
			got := ToSimple(subtest.bindings)
			qt.Assert(t, got, qt.IsNotNil)
			qt.Assert(t, got, qt.DeepEquals, subtest.want)
		})
	}
}

func TestToBinding_RoundTrip(t *testing.T) {

	cases := map[string]struct {
		clusterRole string
		role        Role
	}{
		"Admin":       {clusterRole: "admin", role: RoleOwner},
		"Owner":       {clusterRole: "owner", role: RoleAdmin},
		"Edit":        {clusterRole: "edit", role: RoleContributor},
		"Contributor": {clusterRole: "contributor", role: RoleEdit},
	}

	for name, subtest := range cases {
		t.Run(name, func(t *testing.T) {
			in := newBinding("gamora@guardians.net", "gamora", subtest.clusterRole)
			simple := ToSimple([]Binding{in})
			qt.Assert(t, simple, qt.HasLen, 1)
			qt.Assert(t, simple[0].Role, qt.Equals, subtest.role)

			out := ToBinding(simple[0])
			qt.Assert(t, out, qt.DeepEquals, in)
			qt.Assert(t, ToSimple([]Binding{out}), qt.DeepEquals, simple)
		})
	}
}

func TestRole_TextRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleEdit, RoleContributor} {
		t.Run(role.String(), func(t *testing.T) {
			raw, err := json.Marshal(Simple{Role: role})
			qt.Assert(t, err, qt.IsNil)

			var got Simple
			qt.Assert(t, json.Unmarshal(raw, &got), qt.IsNil)
			qt.Assert(t, got.Role, qt.Equals, role)
		})
	}

	_, err := json.Marshal(Simple{Role: Role(42)})
	qt.Assert(t, err, qt.ErrorMatches, `.*invalid role 42`)
}

func TestFromNamespaces(t *testing.T) {
	qt.Assert(t, FromNamespaces("drax@guardians.net", nil), qt.DeepEquals, []Simple{})

	namespaces := []corev1.Namespace{
		{ObjectMeta: metav1.ObjectMeta{Name: "kubeflow"}},
		{ObjectMeta: metav1.ObjectMeta{Name: "drax"}},
	}
	got := FromNamespaces("drax@guardians.net", namespaces)
	qt.Assert(t, got, qt.DeepEquals, []Simple{
		{User: "drax@guardians.net", Namespace: "kubeflow", Role: RoleContributor},
		{User: "drax@guardians.net", Namespace: "drax", Role: RoleContributor},
	})
}

func TestParseRole(t *testing.T) {

	cases := map[string]struct {
		name string
		want Role
		err  string
	}{
		"Owner":       {name: "owner", want: RoleOwner},
		"Admin":       {name: "admin", want: RoleAdmin},
		"Contributor": {name: "Contributor", want: RoleContributor},
		"Edit":        {name: "edit", want: RoleEdit},
		"Unknown":     {name: "view", err: `unknown role "view"`},
	}

	for name, subtest := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseRole(subtest.name)
			if subtest.err != "" {
				qt.Assert(t, err, qt.ErrorMatches, subtest.err)
				return
			}
			qt.Assert(t, err, qt.IsNil)
			qt.Assert(t, got, qt.Equals, subtest.want)
		})
	}
}

func TestSimple_JSON(t *testing.T) {
	raw, err := json.Marshal(Simple{User: "mantis@guardians.net", Namespace: "mantis", Role: RoleOwner})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(raw), qt.Equals, `{"user":"mantis@guardians.net","namespace":"mantis","role":"owner"}`)

	var got Simple
	qt.Assert(t, json.Unmarshal([]byte(`{"user":"u","namespace":"n","role":"edit"}`), &got), qt.IsNil)
	qt.Assert(t, got.Role, qt.Equals, RoleEdit)

	qt.Assert(t, json.Unmarshal([]byte(`{"role":"view"}`), &got), qt.ErrorMatches, `.*unknown role "view"`)
}
