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
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ProfileSpec defines the desired state of Profile
type ProfileSpec struct {
	// The profile owner
	Owner rbacv1.Subject `json:"owner"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:path=profiles,scope=Cluster
// +kubebuilder:printcolumn:name="OWNER",type="string",JSONPath=".spec.owner.name"

// Profile is a namespace together with the user that owns it. The dashboard
// only ever sends the metadata name and the owner.
type Profile struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ProfileSpec `json:"spec,omitempty"`
}

// NewProfile returns a profile for namespace owned by the user owner
func NewProfile(namespace, owner string) *Profile {
	p := &Profile{}
	p.Name = namespace
	p.Spec.Owner = rbacv1.Subject{
		Kind: rbacv1.UserKind,
		Name: owner,
	}
	return p
}

// +kubebuilder:object:root=true

// ProfileList contains a list of Profile
type ProfileList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Profile `json:"items"`
}
