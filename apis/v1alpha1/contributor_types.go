/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	"crypto/md5"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	ContributorRoleContributor = "Contributor"
	ContributorRoleOwner       = "Owner"
)

const (
	// LabelOwnerID holds the md5 sum of the contributor's user name
	LabelOwnerID = "owner.kubeflow.org/id"
	// LabelRole holds the cluster role name ("admin" or "edit") the
	// contributor was bound with.
	LabelRole = "contributor.kubeflow.org/role"
)

// ContributorSpec defines the user and role a contributor grants
type ContributorSpec struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ContributorStatus is the status of a contributor
type ContributorStatus struct{}

// Contributor grants a single user access to the namespace it lives in
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
type Contributor struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ContributorSpec   `json:"spec,omitempty"`
	Status ContributorStatus `json:"status,omitempty"`
}

// IsOwner reports whether the contributor holds the namespace owner role
func (c *Contributor) IsOwner() bool {
	return c.Spec.Role == ContributorRoleOwner
}

// ContributorList contains a list of Contributors
// +kubebuilder:object:root=true
type ContributorList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []Contributor `json:"items"`
}

// UserID returns the value of LabelOwnerID for a user name
func UserID(name string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(name)))
}
