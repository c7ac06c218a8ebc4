package binding

import (
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
)

// ToSimple converts profile controller bindings. Bindings without a user,
// without a role, or with a role the dashboard does not model are dropped.
func ToSimple(bindings []Binding) []Simple {
	out := make([]Simple, 0, len(bindings))
	for _, b := range bindings {
		if b.User == nil || b.RoleRef == nil {
			continue
		}
		role, ok := ClusterRole(b.RoleRef.Name).Role()
		if !ok {
			continue
		}
		out = append(out, Simple{
			User:      b.User.Name,
			Namespace: b.ReferredNamespace,
			Role:      role,
		})
	}
	return out
}

// FromNamespaces reports user as a contributor of every namespace. It is
// used on clusters where the caller's identity is not known, so it says
// nothing about real access.
func FromNamespaces(user string, namespaces []corev1.Namespace) []Simple {
	out := make([]Simple, 0, len(namespaces))
	for _, ns := range namespaces {
		out = append(out, Simple{
			User:      user,
			Namespace: ns.Name,
			Role:      RoleContributor,
		})
	}
	return out
}

// ToBinding converts a Simple binding to the profile controller's shape.
func ToBinding(s Simple) Binding {
	return Binding{
		User: &rbacv1.Subject{
			Kind: rbacv1.UserKind,
			Name: s.User,
		},
		ReferredNamespace: s.Namespace,
		RoleRef: &rbacv1.RoleRef{
			Kind: "ClusterRole",
			Name: string(s.Role.ClusterRole()),
		},
	}
}
