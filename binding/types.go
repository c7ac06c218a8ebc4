package binding

import (
	"fmt"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"
)

// Role is a workgroup role in the dashboard's vocabulary.
type Role int

// The zero Role is RoleContributor.
const (
	RoleContributor Role = iota
	RoleEdit
	RoleAdmin
	RoleOwner
)

// ClusterRole is the role name the profile controller stores on a binding.
type ClusterRole string

const (
	ClusterRoleAdmin       ClusterRole = "admin"
	ClusterRoleEdit        ClusterRole = "edit"
	ClusterRoleOwner       ClusterRole = "owner"
	ClusterRoleContributor ClusterRole = "contributor"
)

// ClusterRole translates r to the profile controller's vocabulary. The
// translation swaps owner with admin and contributor with edit, so it is
// its own inverse.
func (r Role) ClusterRole() ClusterRole {
	switch r {
	case RoleOwner:
		return ClusterRoleAdmin
	case RoleAdmin:
		return ClusterRoleOwner
	case RoleEdit:
		return ClusterRoleContributor
	case RoleContributor:
		return ClusterRoleEdit
	}
	panic(fmt.Sprintf("binding: invalid role %d", int(r)))
}

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleEdit:
		return "edit"
	case RoleContributor:
		return "contributor"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case RoleOwner, RoleAdmin, RoleEdit, RoleContributor:
		return []byte(r.String()), nil
	}
	return nil, fmt.Errorf("invalid role %d", int(r))
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Role translates c to the dashboard's vocabulary. ok is false for any
// cluster role the dashboard does not model.
func (c ClusterRole) Role() (role Role, ok bool) {
	switch ClusterRole(strings.ToLower(string(c))) {
	case ClusterRoleAdmin:
		return RoleOwner, true
	case ClusterRoleOwner:
		return RoleAdmin, true
	case ClusterRoleContributor:
		return RoleEdit, true
	case ClusterRoleEdit:
		return RoleContributor, true
	}
	return RoleContributor, false
}

// ParseRole parses a role name in the dashboard's vocabulary.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(name) {
	case "owner":
		return RoleOwner, nil
	case "admin":
		return RoleAdmin, nil
	case "edit":
		return RoleEdit, nil
	case "contributor":
		return RoleContributor, nil
	}
	return RoleContributor, fmt.Errorf("unknown role %q", name)
}

// Simple is the normalized binding exchanged with the dashboard UI
type Simple struct {
	User      string `json:"user"`
	Namespace string `json:"namespace"`
	Role      Role   `json:"role"`
}

// Binding is a workgroup binding as the profile controller reads and
// writes it.
type Binding struct {
	User *rbacv1.Subject `json:"user,omitempty"`

	ReferredNamespace string `json:"referredNamespace,omitempty"`

	RoleRef *rbacv1.RoleRef `json:"RoleRef,omitempty"`

	// Status of the binding, one of Succeeded, Failed, Unknown.
	Status string `json:"status,omitempty"`
}
